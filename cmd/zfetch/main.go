// Command zfetch downloads Z-machine story files from the IF-Archive
// zcode index, for populating a local corpus to run zterp or zregress
// against. It isn't part of the core — it's a convenience for
// assembling test fixtures the way the teacher's scraper did.
package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const indexURL = "https://www.ifarchive.org/indexes/if-archive/games/zcode/"

var storyFileRe = regexp.MustCompile(`\.z[12345678]$`)

func main() {
	outputDir := flag.String("out", "stories", "directory to download story files into")
	limit := flag.Int("limit", 0, "stop after downloading this many files (0 = no limit)")
	flag.Parse()

	if err := run(*outputDir, *limit); err != nil {
		fmt.Fprintln(os.Stderr, "zfetch:", err)
		os.Exit(1)
	}
}

type game struct {
	name string
	url  string
}

func run(outputDir string, limit int) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	games, err := listGames(client)
	if err != nil {
		return err
	}

	fmt.Printf("Found %d story files\n", len(games))

	downloaded, skipped, failed := 0, 0, 0
	for i, g := range games {
		if limit > 0 && downloaded >= limit {
			break
		}

		dest := filepath.Join(outputDir, g.name)
		if _, err := os.Stat(dest); err == nil {
			fmt.Printf("[%d/%d] skip %s (already present)\n", i+1, len(games), g.name)
			skipped++
			continue
		}

		fmt.Printf("[%d/%d] fetch %s... ", i+1, len(games), g.name)
		if err := download(client, g.url, dest); err != nil {
			fmt.Println("FAILED:", err)
			failed++
			continue
		}
		fmt.Println("ok")
		downloaded++
		time.Sleep(100 * time.Millisecond) // be polite to the archive
	}

	fmt.Printf("\ndownloaded %d, skipped %d, failed %d\n", downloaded, skipped, failed)
	return writeManifest(outputDir, games)
}

func listGames(client *http.Client) ([]game, error) {
	res, err := client.Get(indexURL)
	if err != nil {
		return nil, fmt.Errorf("fetching index: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("index returned status %d", res.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing index: %w", err)
	}

	var games []game
	doc.Find("dl dt a").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || !storyFileRe.MatchString(href) {
			return
		}
		games = append(games, game{name: filepath.Base(href), url: "https://www.ifarchive.org" + href})
	})
	return games, nil
}

func download(client *http.Client, url, dest string) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return os.WriteFile(dest, data, 0o644)
}

func writeManifest(outputDir string, games []game) error {
	var b strings.Builder
	for _, g := range games {
		b.WriteString(g.name + "\n")
	}
	return os.WriteFile(filepath.Join(outputDir, "manifest.txt"), []byte(b.String()), 0o644)
}
