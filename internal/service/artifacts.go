package service

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// StaticURLPrefix префикс, под которым раздается папка со статикой
const StaticURLPrefix = "/static"

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".webp": true,
}

// ArtifactStore хранит изображения сканов в статической папке
type ArtifactStore struct {
	staticDir string
	logger    *logrus.Logger
}

// NewArtifactStore создает хранилище изображений
func NewArtifactStore(staticDir string, logger *logrus.Logger) *ArtifactStore {
	return &ArtifactStore{staticDir: staticDir, logger: logger}
}

// Save записывает файл scans/<scanID>/<name> и возвращает его URL
func (s *ArtifactStore) Save(scanID, name string, data []byte) (string, error) {
	rel := path.Join("scans", scanID, name)
	filePath := filepath.Join(s.staticDir, filepath.FromSlash(rel))

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create artifact directory: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		os.Remove(filePath)
		return "", fmt.Errorf("failed to write artifact %s: %w", rel, err)
	}

	s.logger.Debugf("Файл сохранен: %s (%d байт)", filePath, len(data))
	return StaticURLPrefix + "/" + rel, nil
}

// RemoveScan удаляет все файлы скана
func (s *ArtifactStore) RemoveScan(scanID string) error {
	dir := filepath.Join(s.staticDir, "scans", scanID)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove scan artifacts: %w", err)
	}
	return nil
}

// ImageExt расширение загруженного файла; неизвестные расширения заменяются на .jpg
func ImageExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if !imageExtensions[ext] {
		return ".jpg"
	}
	return ext
}
