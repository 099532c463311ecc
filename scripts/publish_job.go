//go:build ignore

// Ставит задачу анализа через HTTP API и ждет ее результат в stream:terrain:done.
//
//	go run scripts/publish_job.go -type slope -request '{"dem_id":"..."}'
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

type submitResponse struct {
	Data struct {
		Job struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"job"`
	} `json:"data"`
}

func main() {
	apiURL := flag.String("api", "http://localhost:8080", "Terrain API base URL")
	redisAddr := flag.String("redis", "localhost:6379", "Redis address for streams")
	jobType := flag.String("type", "slope", "Job type: dem, slope, aspect, profile")
	request := flag.String("request", "", "Job request JSON")
	wait := flag.Duration("wait", 60*time.Second, "How long to wait for the result")
	flag.Parse()

	if *request == "" {
		log.Fatal("-request is required")
	}

	client := redis.NewClient(&redis.Options{Addr: *redisAddr})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *wait)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	// Последний ID до постановки задачи, чтобы читать только новые события
	lastID := "$"
	if msgs, err := client.XRevRangeN(ctx, "stream:terrain:done", "+", "-", 1).Result(); err == nil && len(msgs) > 0 {
		lastID = msgs[0].ID
	}

	resp, err := http.Post(*apiURL+"/api/v1/jobs/"+*jobType, "application/json", bytes.NewBufferString(*request))
	if err != nil {
		log.Fatalf("Failed to submit job: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		log.Fatalf("Job rejected (%d): %s", resp.StatusCode, body)
	}

	var submitted submitResponse
	if err := json.Unmarshal(body, &submitted); err != nil {
		log.Fatalf("Failed to decode response: %v", err)
	}
	jobID := submitted.Data.Job.ID
	fmt.Printf("Job submitted: %s (%s)\n", jobID, *jobType)
	fmt.Printf("Waiting for result in stream:terrain:done...\n")

	for {
		results, err := client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{"stream:terrain:done", lastID},
			Count:   10,
			Block:   time.Second,
		}).Result()
		if ctx.Err() != nil {
			log.Fatal("Timeout waiting for result")
		}
		if err != nil && err != redis.Nil {
			log.Printf("Read failed: %v", err)
			continue
		}

		for _, stream := range results {
			for _, msg := range stream.Messages {
				lastID = msg.ID
				data, ok := msg.Values["data"].(string)
				if !ok {
					continue
				}
				var done map[string]interface{}
				if err := json.Unmarshal([]byte(data), &done); err != nil {
					continue
				}
				if done["job_id"] == jobID {
					pretty, _ := json.MarshalIndent(done, "", "  ")
					fmt.Printf("Result received:\n%s\n", pretty)
					return
				}
			}
		}
	}
}
