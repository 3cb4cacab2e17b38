//go:build e2e
// +build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"testing"

	"github.com/joho/godotenv"
)

const defaultBaseURL = "http://localhost:5000/api"

var (
	baseURL string
	quizID  string
)

func TestMain(m *testing.M) {
	// Load .env if present (ignore error)
	_ = godotenv.Load("../../.env")

	baseURL = os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	os.Exit(m.Run())
}

type envelope struct {
	Data  map[string]json.RawMessage `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func postMultipart(t *testing.T, url string, fields map[string]string, fileField, filename string, fileContent []byte) (*http.Response, envelope) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, filename)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(fileContent)
	}
	mw.Close()

	req, err := http.NewRequest(http.MethodPost, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp, decode(t, resp)
}

func decode(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("bad envelope: %v (%s)", err, body)
	}
	return env
}

func Test01_UploadQuiz(t *testing.T) {
	payload := []byte(`[{"id":1,"category":"Algebra","question":"2+2?","options":["3","4"],"correctAnswer":"4"}]`)
	resp, env := postMultipart(t, baseURL+"/upload-quiz", map[string]string{
		"title":      "E2E Algebra",
		"subject":    "Math",
		"authorName": "E2E Runner",
		"password":   "secret1",
	}, "file", "algebra.json", payload)

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload = %d", resp.StatusCode)
	}
	if err := json.Unmarshal(env.Data["id"], &quizID); err != nil || quizID == "" {
		t.Fatalf("no id in response: %v", env)
	}
}

func Test02_SearchFindsUpload(t *testing.T) {
	resp, err := http.Get(baseURL + "/search-quizzes?searchBy=title&query=e2e+algebra")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !bytes.Contains(body, []byte(quizID)) {
		t.Fatalf("search = %d: %s", resp.StatusCode, body)
	}
}

func Test03_VerifyPassword(t *testing.T) {
	for _, tt := range []struct {
		password string
		want     string
	}{
		{"secret1", `"valid":true`},
		{"wrong", `"valid":false`},
	} {
		resp, err := http.Post(
			fmt.Sprintf("%s/quiz/%s/verify-password", baseURL, quizID),
			"application/json",
			bytes.NewBufferString(fmt.Sprintf(`{"password":%q}`, tt.password)),
		)
		if err != nil {
			t.Fatal(err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if !bytes.Contains(body, []byte(tt.want)) {
			t.Fatalf("verify(%s) = %s", tt.password, body)
		}
	}
}

func Test04_DeleteQuiz(t *testing.T) {
	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/quiz/%s", baseURL, quizID),
		bytes.NewBufferString(`{"password":"secret1"}`))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete = %d", resp.StatusCode)
	}

	getResp, err := http.Get(fmt.Sprintf("%s/quiz/%s", baseURL, quizID))
	if err != nil {
		t.Fatal(err)
	}
	getResp.Body.Close()
	if getResp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete = %d, want 404", getResp.StatusCode)
	}
}
