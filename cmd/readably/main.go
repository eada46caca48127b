package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/readably/readably"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:      "readably",
		Usage:     "extract the readable article from a web page",
		UsageText: "readably [options] <url|file|->",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Value:   "text",
				Usage:   "result format: 'text', 'html' or 'json'",
			},
			&cli.IntFlag{
				Name:  "char-threshold",
				Value: 500,
				Usage: "minimum number of characters an article must have",
			},
			&cli.StringSliceFlag{
				Name:  "preserve-class",
				Usage: "class names to keep on the extracted content",
			},
			&cli.BoolFlag{
				Name:  "keep-classes",
				Usage: "keep all class attributes on the extracted content",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 10 * time.Second,
				Usage: "wall-clock budget for the extraction",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "enable debug logs",
			},
			&cli.BoolFlag{
				Name:  "check",
				Usage: "only report whether the page looks readerable",
			},
		},
		Action: extractAction,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func extractAction(c *cli.Context) error {
	source := c.Args().First()
	if source == "" {
		return cli.Exit("missing input: pass a url, a file path or '-' for stdin", 2)
	}

	markup, uri, err := readInput(source)
	if err != nil {
		return err
	}

	opts := []readably.Option{
		readably.CharThreshold(c.Int("char-threshold")),
		readably.ClassesToPreserve(c.StringSlice("preserve-class")...),
		readably.Budget(c.Duration("timeout")),
	}
	if c.Bool("keep-classes") {
		opts = append(opts, readably.KeepClasses(true))
	}
	if c.Bool("verbose") {
		opts = append(opts, readably.Debug(true))
	}

	if c.Bool("check") {
		fmt.Println(readably.IsProbablyReaderable(markup, opts...))
		return nil
	}

	res, err := readably.Extract(markup, uri, opts...)
	if err != nil {
		return err
	}

	switch c.String("output") {
	case "html":
		fmt.Print(res.Content)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	default:
		fmt.Print(res.TextContent)
	}
	return nil
}

// readInput loads the markup from a url, a local file or stdin. The
// returned uri is used to absolutize relative links.
func readInput(source string) (markup, uri string, err error) {
	switch {
	case source == "-":
		bs, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", err
		}
		return string(bs), "", nil

	case strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://"):
		resp, err := http.Get(source)
		if err != nil {
			return "", "", err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return "", "", fmt.Errorf("fetching %s: %s", source, resp.Status)
		}
		bs, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", "", err
		}
		return string(bs), source, nil

	default:
		bs, err := os.ReadFile(source)
		if err != nil {
			return "", "", err
		}
		return string(bs), "", nil
	}
}
