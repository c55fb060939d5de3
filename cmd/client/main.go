package main

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const baseURL = "http://localhost:8080/api/v1"

func main() {
	// Проверяем health endpoint
	fmt.Println("Проверяем health endpoint...")
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		fmt.Printf("Ошибка при обращении к health endpoint: %v\n", err)
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Printf("Ошибка чтения ответа: %v\n", err)
		return
	}
	fmt.Printf("Health check ответ (статус %d):\n%s\n\n", resp.StatusCode, string(body))

	switch {
	case len(os.Args) == 2:
		if err := testAnalyze(os.Args[1]); err != nil {
			fmt.Printf("Ошибка при тестировании оценки: %v\n", err)
		}
	case len(os.Args) == 5:
		if err := testRefine(os.Args[1], os.Args[2:]); err != nil {
			fmt.Printf("Ошибка при тестировании уточнения: %v\n", err)
		}
	default:
		fmt.Println("Оценка снимка:      go run ./cmd/client <снимок>")
		fmt.Println("Уточнение по ракурсам: go run ./cmd/client <damage_id> <слева> <по центру> <справа>")
	}
}

func testAnalyze(imagePath string) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := attachFile(writer, "file", imagePath); err != nil {
		return err
	}
	writer.WriteField("user_id", "test-user")
	writer.WriteField("car_name", "Maruti Swift")
	writer.Close()

	fmt.Printf("Отправляем снимок %s на оценку...\n", imagePath)
	return send(baseURL+"/analyze", &body, writer.FormDataContentType())
}

func testRefine(damageID string, paths []string) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	for i, field := range []string{"file_left", "file_center", "file_right"} {
		if err := attachFile(writer, field, paths[i]); err != nil {
			return err
		}
	}
	writer.Close()

	fmt.Printf("Отправляем три ракурса повреждения %s...\n", damageID)
	return send(fmt.Sprintf("%s/damages/%s/refine", baseURL, damageID), &body, writer.FormDataContentType())
}

func attachFile(writer *multipart.Writer, field, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("ошибка чтения файла %s: %w", path, err)
	}
	part, err := writer.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("ошибка создания form field: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("ошибка записи файла: %w", err)
	}
	return nil
}

func send(url string, body io.Reader, contentType string) error {
	client := &http.Client{Timeout: 5 * time.Minute}
	req, err := http.NewRequest(http.MethodPost, url, body)
	if err != nil {
		return fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("ошибка отправки запроса: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	fmt.Printf("Ответ (статус %d):\n%s\n", resp.StatusCode, string(respBody))
	return nil
}
