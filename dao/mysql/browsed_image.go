package mysql

import "time"

// InsertBrowsedImage 记录被取走的图片及其来源
func InsertBrowsedImage(owner, imgID, prompt, provider, path string) error {
	sqlStr := `INSERT INTO browsed_images (owner, img_id, prompt, provider, file_path, created_at)
	           VALUES (?, ?, ?, ?, ?, ?)`
	_, err := Db.Exec(sqlStr, owner, imgID, prompt, provider, path, time.Now())
	return err
}
