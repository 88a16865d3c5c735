package db

import "time"

func (d *DB) GetConfig(key string) (string, error) {
	var val string
	err := d.sql.QueryRow(`SELECT value FROM config WHERE key = ?`, key).Scan(&val)
	if err != nil {
		return "", err
	}
	return val, nil
}

func (d *DB) SetConfig(key, value string) error {
	_, err := d.sql.Exec(`
		INSERT INTO config (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().Unix())
	return err
}

func (d *DB) GetNodeID() (string, error) {
	return d.GetConfig("node_id")
}
