// Command zregress is the golden-transcript regression harness: it
// feeds each test case's scripted commands into a story file and
// asserts the resulting transcript against a reference, the way the
// teacher's gametest command ran single games and recorded their
// first screen, extended here to drive a full command script and
// diff byte-for-byte (or against lighter assertions) rather than just
// capture-and-report.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jrnilsson/infocore/zheader"
	"github.com/jrnilsson/infocore/zmachine"
)

// caseResult is one test case's outcome, written to the JSON results
// file the same way gametest wrote testdata/test_results.json.
type caseResult struct {
	Name    string `json:"name"`
	Story   string `json:"story"`
	Passed  bool   `json:"passed"`
	Detail  string `json:"detail,omitempty"`
	Golden  bool   `json:"golden,omitempty"`
}

func main() {
	casesDir := flag.String("cases", "testdata/cases", "directory of regression test cases")
	outputPath := flag.String("output", "testdata/results.json", "where to write the JSON results summary")
	update := flag.Bool("update", false, "write actual transcripts as the new golden files instead of comparing")
	single := flag.String("case", "", "run only the named case")
	flag.Parse()

	cases, err := discoverCases(*casesDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "zregress:", err)
		os.Exit(1)
	}

	if *single != "" {
		filtered := cases[:0]
		for _, c := range cases {
			if c.name == *single {
				filtered = append(filtered, c)
			}
		}
		cases = filtered
	}

	if len(cases) == 0 {
		fmt.Fprintln(os.Stderr, "zregress: no test cases found in", *casesDir)
		os.Exit(1)
	}

	results := make([]caseResult, 0, len(cases))
	failed := 0
	for _, c := range cases {
		r := runCase(c, *update)
		results = append(results, r)
		status := "PASS"
		if !r.Passed {
			status = "FAIL"
			failed++
		}
		fmt.Printf("[%s] %s: %s\n", status, r.Name, r.Detail)
	}

	if err := writeResults(*outputPath, results); err != nil {
		fmt.Fprintln(os.Stderr, "zregress: writing results:", err)
	}

	fmt.Printf("\n%d/%d cases passed\n", len(cases)-failed, len(cases))
	if failed > 0 {
		os.Exit(1)
	}
}

type testCase struct {
	name      string
	dir       string
	storyPath string
}

// discoverCases finds one story file per subdirectory of dir (the
// case's Z-machine story image, by extension .z1-.z8) plus its
// optional .cmds/.golden/.assert siblings.
func discoverCases(dir string) ([]testCase, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var cases []testCase
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		caseDir := filepath.Join(dir, e.Name())
		storyPath, err := findStoryFile(caseDir)
		if err != nil {
			continue
		}
		cases = append(cases, testCase{name: e.Name(), dir: caseDir, storyPath: storyPath})
	}
	sort.Slice(cases, func(i, j int) bool { return cases[i].name < cases[j].name })
	return cases, nil
}

func findStoryFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		name := e.Name()
		if len(name) > 2 && name[len(name)-2] == 'z' && name[len(name)-1] >= '1' && name[len(name)-1] <= '8' {
			return filepath.Join(dir, name), nil
		}
	}
	return "", fmt.Errorf("no story file in %s", dir)
}

// runCase loads the story, feeds the case's command script (if any)
// one line per turn, and checks the resulting transcript against
// whichever assertion file is present.
func runCase(c testCase, update bool) caseResult {
	r := caseResult{Name: c.name, Story: c.storyPath}

	romBytes, err := os.ReadFile(c.storyPath)
	if err != nil {
		r.Detail = fmt.Sprintf("reading story: %v", err)
		return r
	}

	m, err := zmachine.New(romBytes, zheader.DefaultCapabilities())
	if err != nil {
		r.Detail = fmt.Sprintf("loading story: %v", err)
		return r
	}

	commands := readLines(filepath.Join(c.dir, c.name+".cmds"))

	var transcript strings.Builder
	cmdIdx := 0
	for {
		done, needsInput := m.Step()
		transcript.WriteString(m.Flush())
		if done {
			break
		}
		if needsInput {
			if m.State() == zmachine.PausedForChar {
				m.FeedChar('\n')
				continue
			}
			if cmdIdx >= len(commands) {
				break
			}
			transcript.WriteString("> " + commands[cmdIdx] + "\n")
			m.Feed(commands[cmdIdx])
			cmdIdx++
		}
	}

	actual := transcript.String()

	if rerr := m.RuntimeError(); rerr != nil {
		r.Detail = fmt.Sprintf("runtime error: %v", rerr)
		return r
	}

	goldenPath := filepath.Join(c.dir, c.name+".golden")
	if update {
		if err := os.WriteFile(goldenPath, []byte(actual), 0o644); err != nil {
			r.Detail = fmt.Sprintf("writing golden: %v", err)
			return r
		}
		r.Passed = true
		r.Golden = true
		r.Detail = "golden updated"
		return r
	}

	if assertions := readLines(filepath.Join(c.dir, c.name+".assert")); len(assertions) > 0 {
		return checkAssertions(r, actual, assertions)
	}

	expected, err := os.ReadFile(goldenPath)
	if err != nil {
		r.Detail = fmt.Sprintf("no golden or assertion file for case (run with -update to create one): %v", err)
		return r
	}

	if bytes.Equal(expected, []byte(actual)) {
		r.Passed = true
		r.Detail = "transcript matches golden"
	} else {
		r.Detail = "transcript differs from golden"
	}
	return r
}

// checkAssertions evaluates the lighter-weight per-case checks that
// spec.md §8 describes for suites like czech ("must end in "All tests
// passed.") and praxix ("every line ends in PASSED") where an exact
// byte-identical transcript isn't the acceptance criterion.
func checkAssertions(r caseResult, actual string, assertions []string) caseResult {
	for _, a := range assertions {
		directive, arg, ok := strings.Cut(a, " ")
		if !ok {
			continue
		}
		switch directive {
		case "contains":
			if !strings.Contains(actual, arg) {
				r.Detail = fmt.Sprintf("transcript does not contain %q", arg)
				return r
			}
		case "suffix":
			if !strings.HasSuffix(strings.TrimRight(actual, "\n"), arg) {
				r.Detail = fmt.Sprintf("transcript does not end with %q", arg)
				return r
			}
		case "all-lines-suffix":
			for _, line := range strings.Split(actual, "\n") {
				line = strings.TrimSpace(line)
				if line == "" {
					continue
				}
				if !strings.HasSuffix(line, arg) {
					r.Detail = fmt.Sprintf("line %q does not end with %q", line, arg)
					return r
				}
			}
		}
	}
	r.Passed = true
	r.Detail = "assertions satisfied"
	return r
}

func readLines(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func writeResults(path string, results []caseResult) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
