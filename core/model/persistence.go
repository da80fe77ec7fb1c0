package model

import (
	"encoding/gob"
	"io"
	"os"

	"github.com/YuminosukeSato/oselm/pkg/errors"
)

// SaveModel はモデルをgob形式でファイルに保存する
//
// 使用例:
//
//	snapshot := est.Snapshot()
//	err := model.SaveModel(snapshot, "model.gob")
func SaveModel(model interface{}, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.NewIOError("SaveModel", filename, err)
	}

	if err := SaveModelToWriter(model, file); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return errors.NewIOError("SaveModel", filename, err)
	}
	return nil
}

// LoadModel はファイルからgob形式のモデルを読み込む
//
// パラメータ:
//   - model: 読み込み先のポインタ
//   - filename: 読み込み元のファイルパス
func LoadModel(model interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.NewIOError("LoadModel", filename, err)
	}
	defer file.Close()

	return LoadModelFromReader(model, file)
}

// SaveModelToWriter はモデルをio.Writerに保存する
func SaveModelToWriter(model interface{}, w io.Writer) error {
	encoder := gob.NewEncoder(w)
	if err := encoder.Encode(model); err != nil {
		return errors.NewIOError("SaveModelToWriter", "", err)
	}
	return nil
}

// LoadModelFromReader はio.Readerからモデルを読み込む
// 読み込み自体の失敗は ErrIO、デコードの失敗は ErrFormat を返す
func LoadModelFromReader(model interface{}, r io.Reader) error {
	decoder := gob.NewDecoder(r)
	if err := decoder.Decode(model); err != nil {
		if pathErr := (*os.PathError)(nil); errors.As(err, &pathErr) {
			return errors.NewIOError("LoadModelFromReader", pathErr.Path, err)
		}
		return errors.NewFormatError("LoadModelFromReader", "", err)
	}
	return nil
}
