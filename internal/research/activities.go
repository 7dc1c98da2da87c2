package research

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/rahul/khoji/internal/browser"
	"github.com/rahul/khoji/internal/faults"
)

const (
	searchEngineURL    = "https://www.google.com"
	maxResults         = 3
	snippetPlaceholder = "No description available"

	defaultSettleDelay = 3 * time.Second
)

// ChaosRates carries the per-checkpoint failure probabilities handed to the
// simulator.
type ChaosRates struct {
	SearchStart   float64
	PostNavigate  float64
	PreExtraction float64
	Report        float64
}

// DefaultChaosRates returns the demo tuning: aggressive enough that a run of
// six tasks almost always shows retries.
func DefaultChaosRates() ChaosRates {
	return ChaosRates{
		SearchStart:   0.4,
		PostNavigate:  0.15,
		PreExtraction: 0.2,
		Report:        0.3,
	}
}

// Extraction is schema-first: the instruction and the JSON sketch describe
// WHAT to pull; the browser controller owns HOW.
const (
	primaryExtractInstruction = "Extract the first three organic search results from this page. Skip ads, shopping modules and featured snippets. For each result capture the page title, the destination URL, and the short description shown under it."
	primaryExtractSchema      = `{"results":[{"title":"string","url":"string","snippet":"string"}]}`

	fallbackExtractInstruction = "Extract up to three organic search result links from this page: just the linked page title and the destination URL. Skip ads and shopping modules."
	fallbackExtractSchema      = `{"results":[{"title":"string","url":"string"}]}`
)

// Activities are the externally invocable research steps. One value is
// registered per worker; every field is shared across concurrent step
// executions and must stay read-only after construction.
type Activities struct {
	Sessions   browser.Factory
	Simulator  *faults.Simulator
	Classifier *faults.Classifier
	Chaos      ChaosRates
	OutputDir  string

	settleDelay time.Duration
}

func NewActivities(sessions browser.Factory, sim *faults.Simulator, classifier *faults.Classifier, outputDir string) *Activities {
	return &Activities{
		Sessions:    sessions,
		Simulator:   sim,
		Classifier:  classifier,
		Chaos:       DefaultChaosRates(),
		OutputDir:   outputDir,
		settleDelay: defaultSettleDelay,
	}
}

// SimulateFailure rolls for a synthetic failure at the given probability.
// Exposed as its own step so callers can inject chaos anywhere.
func (a *Activities) SimulateFailure(ctx context.Context, probability float64) error {
	return a.shape(a.Simulator.Roll(probability))
}

// SearchGoogle drives a live browser through a search for topic and extracts
// up to three organic results. An empty slice is a valid outcome, not an
// error: it means the search ran but nothing could be extracted.
func (a *Activities) SearchGoogle(ctx context.Context, topic string) ([]SearchResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("search step started", "topic", topic)

	// 1. Chaos checkpoint before any resource is acquired.
	if err := a.Simulator.Roll(a.Chaos.SearchStart); err != nil {
		return nil, a.shape(err)
	}

	// 2. Open the session. A missing LLM credential surfaces here, before
	// any browser process starts.
	session, err := a.Sessions.Open(ctx)
	if err != nil {
		return nil, a.shape(fmt.Errorf("failed to acquire browser session: %w", err))
	}
	// Release on every exit path. A failed release is logged, never allowed
	// to mask the step outcome.
	defer func() {
		if cerr := session.Close(); cerr != nil {
			logger.Warn("browser session release failed", "error", cerr)
		}
	}()

	// 3. Load the search engine.
	if err := session.Navigate(ctx, searchEngineURL); err != nil {
		return nil, a.shape(fmt.Errorf("failed to open %s: %w", searchEngineURL, err))
	}

	// 4. Post-navigation chaos checkpoint.
	if err := a.Simulator.Roll(a.Chaos.PostNavigate); err != nil {
		return nil, a.shape(err)
	}

	// 5. Drive the search with natural-language instructions.
	instructions := []string{
		"click the search input box",
		fmt.Sprintf("type %q into the search input box", topic),
		"press the Enter key to submit the search",
	}
	for _, instruction := range instructions {
		if err := session.Act(ctx, instruction); err != nil {
			return nil, a.shape(fmt.Errorf("browser action %q failed: %w", instruction, err))
		}
	}

	// 6. Let the result page render.
	time.Sleep(a.settleDelay)

	// 7. Pre-extraction chaos checkpoint.
	if err := a.Simulator.Roll(a.Chaos.PreExtraction); err != nil {
		return nil, a.shape(err)
	}

	// 8. Structured extraction, with one looser retry when it comes back
	// empty.
	results, err := a.extractResults(ctx, session)
	if err != nil {
		return nil, a.shape(err)
	}

	logger.Info("search step finished", "topic", topic, "results", len(results))
	return results, nil
}

func (a *Activities) extractResults(ctx context.Context, session browser.Controller) ([]SearchResult, error) {
	var primary struct {
		Results []SearchResult `json:"results"`
	}
	if err := session.ExtractStructured(ctx, primaryExtractInstruction, primaryExtractSchema, &primary); err != nil {
		return nil, fmt.Errorf("result extraction failed: %w", err)
	}
	if len(primary.Results) > 0 {
		return clipResults(primary.Results), nil
	}

	// Looser pass: titles and URLs only, snippets backfilled.
	var loose struct {
		Results []struct {
			Title string `json:"title"`
			URL   string `json:"url"`
		} `json:"results"`
	}
	if err := session.ExtractStructured(ctx, fallbackExtractInstruction, fallbackExtractSchema, &loose); err != nil {
		return nil, fmt.Errorf("fallback extraction failed: %w", err)
	}
	results := make([]SearchResult, 0, len(loose.Results))
	for _, r := range loose.Results {
		results = append(results, SearchResult{Title: r.Title, URL: r.URL, Snippet: snippetPlaceholder})
	}
	return clipResults(results), nil
}

func clipResults(results []SearchResult) []SearchResult {
	if len(results) > maxResults {
		return results[:maxResults]
	}
	return results
}

// GenerateReport renders the report for topic and writes it under the output
// directory, returning the file path.
func (a *Activities) GenerateReport(ctx context.Context, topic string, results []SearchResult) (string, error) {
	logger := activity.GetLogger(ctx)

	if err := a.Simulator.Roll(a.Chaos.Report); err != nil {
		return "", a.shape(err)
	}

	if err := os.MkdirAll(a.OutputDir, 0o755); err != nil {
		return "", a.shape(fmt.Errorf("failed to create output directory: %w", err))
	}

	now := time.Now().UTC()
	path := filepath.Join(a.OutputDir, reportFilename(topic, now))
	if err := os.WriteFile(path, []byte(renderReport(topic, results, now)), 0o644); err != nil {
		return "", a.shape(fmt.Errorf("failed to write report: %w", err))
	}

	logger.Info("report written", "path", path, "results", len(results))
	return path, nil
}

// shape sorts step errors into the retry classes the orchestrator acts on:
// injected failures stay retryable under their own type, fatal collaborator
// errors become non-retryable configuration errors, everything else passes
// through and retries by default.
func (a *Activities) shape(err error) error {
	if err == nil {
		return nil
	}
	var sf *faults.SimulatedFailure
	if errors.As(err, &sf) {
		return temporal.NewApplicationErrorWithCause(err.Error(), SimulatedFailureType, err)
	}
	if a.Classifier.Classify(err) == faults.SeverityFatal {
		return temporal.NewNonRetryableApplicationError(err.Error(), ConfigurationErrorType, err)
	}
	return err
}
