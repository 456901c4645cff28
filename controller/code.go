package controller

import "net/http"

// ResCode 业务状态码，前端按 code 分支，不解析 msg 文本
type ResCode int64

const (
	CodeSuccess ResCode = 1000 + iota
	CodeInvalidParams
	CodePromptTooLong
	CodeProfanity
	CodeRetryExhausted
	CodeTaskNotFound
	CodeContentPolicy
	CodeServerBusy
)

var codeMsgMap = map[ResCode]string{
	CodeSuccess:        "success",
	CodeInvalidParams:  "invalid request params",
	CodePromptTooLong:  "prompt is too long",
	CodeProfanity:      "profanity detected in prompt",
	CodeRetryExhausted: "the chance of this not working is 1 in a million, but it just happened, please try again",
	CodeTaskNotFound:   "task not found",
	CodeContentPolicy:  "prompt violates our content policy",
	CodeServerBusy:     "server busy",
}

var codeStatusMap = map[ResCode]int{
	CodeSuccess:        http.StatusOK,
	CodeInvalidParams:  http.StatusBadRequest,
	CodePromptTooLong:  http.StatusBadRequest,
	CodeProfanity:      http.StatusBadRequest,
	CodeRetryExhausted: http.StatusConflict,
	CodeTaskNotFound:   http.StatusNotFound,
	CodeContentPolicy:  http.StatusBadRequest,
	CodeServerBusy:     http.StatusInternalServerError,
}

func (c ResCode) Msg() string {
	if msg, ok := codeMsgMap[c]; ok {
		return msg
	}
	return codeMsgMap[CodeServerBusy]
}

func (c ResCode) HTTPStatus() int {
	if status, ok := codeStatusMap[c]; ok {
		return status
	}
	return http.StatusInternalServerError
}
