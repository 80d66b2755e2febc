package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"snapcook-api/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"github.com/urfave/cli/v3"
)

const defaultURL = "http://localhost:8000"

// newApp 建立 SnapCook 命令列工具，用於對執行中的服務做冒煙測試
func newApp() *cli.Command {
	return &cli.Command{
		Name:  "snapcook",
		Usage: "Smoke-test client for a running SnapCook API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Value:   defaultURL,
				Usage:   "Base URL of the SnapCook API",
				Sources: cli.EnvVars("SNAPCOOK_URL"),
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 2 * time.Minute,
				Usage: "Request timeout",
			},
		},
		Commands: []*cli.Command{
			healthCmd(),
			suggestCmd(),
			detectCmd(),
			analyzeCmd(),
		},
	}
}

func healthCmd() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Check that the API is up",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			resp, err := newClient(cmd).R().SetContext(ctx).Get("/health")
			return printResponse(cmd, resp, err)
		},
	}
}

func suggestCmd() *cli.Command {
	return &cli.Command{
		Name:  "suggest",
		Usage: "Suggest recipes for a list of ingredients",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:     "ingredient",
				Aliases:  []string{"i"},
				Usage:    "Ingredient name (repeatable)",
				Required: true,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			resp, err := newClient(cmd).R().
				SetContext(ctx).
				SetHeader("Content-Type", "application/json").
				SetBody(cmd.StringSlice("ingredient")).
				Post("/suggest-recipes")
			return printResponse(cmd, resp, err)
		},
	}
}

func detectCmd() *cli.Command {
	return &cli.Command{
		Name:  "detect",
		Usage: "Detect ingredients in a photo",
		Flags: []cli.Flag{imageFlag(), hintFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return uploadImage(ctx, cmd, "/detect-ingredients")
		},
	}
}

func analyzeCmd() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Detect ingredients in a photo and suggest recipes",
		Flags: []cli.Flag{imageFlag(), hintFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return uploadImage(ctx, cmd, "/analyze-and-suggest")
		},
	}
}

func imageFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "image",
		Usage:    "Path to a JPEG, PNG, GIF or WebP photo",
		Required: true,
	}
}

func hintFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "hint",
		Usage: "Optional hint for the detector, e.g. \"top shelf is sauces\"",
	}
}

// newClient 依全域旗標建立 resty 客戶端
func newClient(cmd *cli.Command) *resty.Client {
	return resty.New().
		SetBaseURL(cmd.String("url")).
		SetTimeout(cmd.Duration("timeout")).
		SetHeader("Accept", "application/json").
		SetHeader("X-Request-ID", common.GenerateUUID())
}

// uploadImage 以 multipart 上傳圖片
func uploadImage(ctx context.Context, cmd *cli.Command, path string) error {
	imagePath := cmd.String("image")
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("failed to read image %q: %w", imagePath, err)
	}

	req := newClient(cmd).R().
		SetContext(ctx).
		SetFileReader("file", filepath.Base(imagePath), bytes.NewReader(data))
	if hint := cmd.String("hint"); hint != "" {
		req.SetFormData(map[string]string{"user_hint": hint})
	}

	resp, err := req.Post(path)
	return printResponse(cmd, resp, err)
}

// printResponse 輸出格式化後的 JSON，非 2xx 回傳錯誤
func printResponse(cmd *cli.Command, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	body := resp.Body()
	var pretty bytes.Buffer
	if json.Indent(&pretty, body, "", "  ") == nil {
		body = pretty.Bytes()
	}
	fmt.Fprintln(cmd.Root().Writer, string(body))

	if resp.StatusCode() >= http.StatusBadRequest {
		var apiErr common.ErrorResponse
		if json.Unmarshal(resp.Body(), &apiErr) == nil && apiErr.Kind != "" {
			return fmt.Errorf("%s (%d): %s", apiErr.Kind, resp.StatusCode(), apiErr.Message)
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode())
	}
	return nil
}
