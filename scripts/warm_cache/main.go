// Command warm_cache queues cache warm-ups against a running API instance,
// typically from cron ahead of registration periods.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

type warmRequest struct {
	Term     string   `json:"term"`
	Subjects []string `json:"subjects"`
}

func main() {
	var (
		baseURL  string
		term     string
		subjects string
		timeout  time.Duration
	)

	flag.StringVar(&baseURL, "base", "http://localhost:8080/api/v1", "API base URL")
	flag.StringVar(&term, "term", "", "term code, e.g. 202508")
	flag.StringVar(&subjects, "subjects", "", "comma-separated subject codes, e.g. CSC,MATH,ENGL")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "HTTP client timeout")
	flag.Parse()

	if term == "" || subjects == "" {
		log.Fatal("both -term and -subjects are required")
	}

	var subjectList []string
	for _, subject := range strings.Split(subjects, ",") {
		if trimmed := strings.TrimSpace(subject); trimmed != "" {
			subjectList = append(subjectList, strings.ToUpper(trimmed))
		}
	}

	payload, err := json.Marshal(warmRequest{Term: term, Subjects: subjectList})
	if err != nil {
		log.Fatalf("encode request: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Post(baseURL+"/cache/warm", "application/json", bytes.NewReader(payload))
	if err != nil {
		log.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode >= http.StatusBadRequest {
		log.Fatalf("warm-up rejected (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	fmt.Printf("queued warm-up for %s: %s\n", term, strings.TrimSpace(string(body)))
}
