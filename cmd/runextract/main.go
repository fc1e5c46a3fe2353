// runextract runs the extraction pipeline once for a local file or stdin
// text, without a database, and prints the result to stdout.
//
//	runextract <file> [mode] [schema-file]
//	cat notes.txt | runextract - [mode] [schema-file]
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aakashr02/Metaforms-task/constants"
	"github.com/aakashr02/Metaforms-task/internal/common"
	"github.com/aakashr02/Metaforms-task/internal/extract"
	"github.com/aakashr02/Metaforms-task/internal/llm"
	"github.com/aakashr02/Metaforms-task/internal/llm/openai"
	"github.com/aakashr02/Metaforms-task/internal/pipeline"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		logger.Error("usage: runextract <file|-> [automatic|schema] [schema-file]")
		os.Exit(2)
	}

	cfg := common.LoadConfig()

	req := pipeline.Request{
		Model:      cfg.LLM.Model,
		MaxTokens:  cfg.LLM.MaxTokens,
		Credential: cfg.LLM.APIKey,
	}
	temp := cfg.LLM.Temperature
	req.Temperature = &temp

	if os.Args[1] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			logger.Error("reading stdin", "error", err)
			os.Exit(1)
		}
		req.Text = string(data)
	} else {
		data, err := os.ReadFile(os.Args[1])
		if err != nil {
			logger.Error("reading file", "path", os.Args[1], "error", err)
			os.Exit(1)
		}
		req.Document = &extract.Document{
			Name:        filepath.Base(os.Args[1]),
			ContentType: constants.MapContentType(filepath.Ext(os.Args[1])),
			Data:        data,
		}
	}

	if len(os.Args) >= 3 {
		mode, ok := llm.ParseMode(os.Args[2])
		if !ok {
			logger.Error("unknown mode", "arg", os.Args[2])
			os.Exit(2)
		}
		req.Mode = mode
	}
	if len(os.Args) >= 4 {
		schema, err := os.ReadFile(os.Args[3])
		if err != nil {
			logger.Error("reading schema file", "path", os.Args[3], "error", err)
			os.Exit(1)
		}
		req.Schema = string(schema)
	}

	extractor := extract.NewExtractor(logger)
	client := openai.NewClient(openai.Config{
		BaseURL: cfg.LLM.BaseURL,
		Timeout: cfg.LLM.Timeout,
	}, logger)
	processor := pipeline.NewProcessor(logger, extractor, client, nil)

	res, err := processor.Run(context.Background(), req)
	if err != nil {
		logger.Error("extraction failed", "code", common.ErrorCode(err), "error", err)
		os.Exit(1)
	}

	if res.Outcome.Fallback {
		fmt.Fprintln(os.Stderr, "completion was not valid JSON; raw response follows")
		fmt.Println(res.Outcome.RawFallback)
		os.Exit(3)
	}

	pretty, err := res.Outcome.Structured.PrettyJSON()
	if err != nil {
		logger.Error("serializing result", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(pretty))

	if res.Outcome.Structured.AvgConfidence != nil {
		fmt.Fprintf(os.Stderr, "average confidence: %.0f%%\n", *res.Outcome.Structured.AvgConfidence*100)
	}
	if res.Outcome.Structured.FieldCount != nil {
		fmt.Fprintf(os.Stderr, "fields: %d\n", *res.Outcome.Structured.FieldCount)
	}
}
