package utils

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SupportAudioExt checks if audio ext is supported
func SupportAudioExt(ext string) bool {
	return ext == ".wav" || ext == ".mp3" || ext == ".mp4" || ext == ".m4a"
}

// ParamTrue - returns true if string param indicates true value
func ParamTrue(prm string) bool {
	return strings.ToLower(prm) == "true" || prm == "1"
}

// MakeValidateFileName prepares object name for the file storage.
// Drops any path part of fileName, changes spaces, lowercases the extension
func MakeValidateFileName(id, fileName string) (string, error) {
	res := filepath.Base(filepath.Clean(fileName))
	if res == "" || res == "." || res == string(filepath.Separator) {
		return "", fmt.Errorf("wrong file name '%s'", fileName)
	}
	res = strings.ReplaceAll(res, " ", "_")
	ext := filepath.Ext(res)
	res = strings.TrimSuffix(res, ext) + strings.ToLower(ext)
	if id != "" {
		res = id + "/" + res
	}
	return res, nil
}
