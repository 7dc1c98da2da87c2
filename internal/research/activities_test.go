package research

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/rahul/khoji/internal/browser"
	"github.com/rahul/khoji/internal/faults"
)

type fakeSession struct {
	primary  []SearchResult
	fallback []SearchResult

	navigated []string
	actions   []string
	schemas   []string

	navErr     error
	actErr     error
	extractErr error
	closeErr   error
	closed     int
}

func (f *fakeSession) Navigate(ctx context.Context, url string) error {
	f.navigated = append(f.navigated, url)
	return f.navErr
}

func (f *fakeSession) Act(ctx context.Context, instruction string) error {
	f.actions = append(f.actions, instruction)
	return f.actErr
}

func (f *fakeSession) ExtractStructured(ctx context.Context, instruction, schema string, out any) error {
	f.schemas = append(f.schemas, schema)
	if f.extractErr != nil {
		return f.extractErr
	}
	results := f.primary
	if len(f.schemas) > 1 {
		results = f.fallback
	}
	data, err := json.Marshal(map[string]any{"results": results})
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (f *fakeSession) Close() error {
	f.closed++
	return f.closeErr
}

type fakeFactory struct {
	session *fakeSession
	err     error
	opened  int
}

func (f *fakeFactory) Open(ctx context.Context) (browser.Controller, error) {
	f.opened++
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func newTestActivities(factory browser.Factory, outputDir string) *Activities {
	a := NewActivities(factory, faults.NewSimulator(false), faults.NewClassifier(), outputDir)
	a.settleDelay = 0
	return a
}

func newActivityEnv(t *testing.T, a *Activities) *testsuite.TestActivityEnvironment {
	t.Helper()
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	env.RegisterActivity(a)
	return env
}

func TestSearchGoogleReturnsExtractedResults(t *testing.T) {
	fixtures := []SearchResult{
		{Title: "A", URL: "https://a.example", Snippet: "first"},
		{Title: "B", URL: "https://b.example", Snippet: "second"},
		{Title: "C", URL: "https://c.example", Snippet: "third"},
	}
	for size := 1; size <= 3; size++ {
		session := &fakeSession{primary: fixtures[:size]}
		a := newTestActivities(&fakeFactory{session: session}, t.TempDir())
		env := newActivityEnv(t, a)

		val, err := env.ExecuteActivity(a.SearchGoogle, "go concurrency")
		require.NoError(t, err, "size %d", size)

		var results []SearchResult
		require.NoError(t, val.Get(&results))
		require.Equal(t, fixtures[:size], results, "size %d: result set must pass through unmodified", size)
		require.Equal(t, 1, session.closed, "size %d: session must be released exactly once", size)
	}
}

func TestSearchGoogleDrivesTheSearch(t *testing.T) {
	session := &fakeSession{primary: []SearchResult{{Title: "A", URL: "https://a.example", Snippet: "s"}}}
	a := newTestActivities(&fakeFactory{session: session}, t.TempDir())
	env := newActivityEnv(t, a)

	_, err := env.ExecuteActivity(a.SearchGoogle, "tea ceremonies in japan")
	require.NoError(t, err)

	require.Equal(t, []string{searchEngineURL}, session.navigated)
	require.Len(t, session.actions, 3)
	require.Contains(t, session.actions[1], "tea ceremonies in japan")
	require.Equal(t, []string{primaryExtractSchema}, session.schemas)
}

func TestSearchGoogleClipsToThree(t *testing.T) {
	session := &fakeSession{primary: []SearchResult{
		{Title: "1"}, {Title: "2"}, {Title: "3"}, {Title: "4"}, {Title: "5"},
	}}
	a := newTestActivities(&fakeFactory{session: session}, t.TempDir())
	env := newActivityEnv(t, a)

	val, err := env.ExecuteActivity(a.SearchGoogle, "anything")
	require.NoError(t, err)

	var results []SearchResult
	require.NoError(t, val.Get(&results))
	require.Len(t, results, maxResults)
	require.Equal(t, "3", results[2].Title)
}

func TestSearchGoogleFallbackBackfillsSnippets(t *testing.T) {
	session := &fakeSession{
		primary:  nil,
		fallback: []SearchResult{{Title: "Bare", URL: "https://bare.example"}},
	}
	a := newTestActivities(&fakeFactory{session: session}, t.TempDir())
	env := newActivityEnv(t, a)

	val, err := env.ExecuteActivity(a.SearchGoogle, "anything")
	require.NoError(t, err)

	require.Equal(t, []string{primaryExtractSchema, fallbackExtractSchema}, session.schemas)

	var results []SearchResult
	require.NoError(t, val.Get(&results))
	require.Len(t, results, 1)
	require.Equal(t, snippetPlaceholder, results[0].Snippet)
	require.Equal(t, "Bare", results[0].Title)
}

func TestSearchGoogleEmptyIsNotAnError(t *testing.T) {
	session := &fakeSession{}
	a := newTestActivities(&fakeFactory{session: session}, t.TempDir())
	env := newActivityEnv(t, a)

	val, err := env.ExecuteActivity(a.SearchGoogle, "anything")
	require.NoError(t, err)

	var results []SearchResult
	require.NoError(t, val.Get(&results))
	require.Empty(t, results)
	require.Equal(t, 1, session.closed)
}

func TestSearchGoogleReleasesSessionOnActionError(t *testing.T) {
	session := &fakeSession{actErr: errors.New("element vanished")}
	a := newTestActivities(&fakeFactory{session: session}, t.TempDir())
	env := newActivityEnv(t, a)

	_, err := env.ExecuteActivity(a.SearchGoogle, "anything")
	require.Error(t, err)
	require.Contains(t, err.Error(), "element vanished")
	require.Equal(t, 1, session.closed)
}

func TestSearchGoogleReleasesSessionOnChaos(t *testing.T) {
	session := &fakeSession{primary: []SearchResult{{Title: "A"}}}
	factory := &fakeFactory{session: session}
	a := newTestActivities(factory, t.TempDir())
	a.Simulator = faults.NewSeededSimulator(1)
	a.Chaos = ChaosRates{PostNavigate: 1}
	env := newActivityEnv(t, a)

	_, err := env.ExecuteActivity(a.SearchGoogle, "anything")
	require.Error(t, err)

	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, SimulatedFailureType, appErr.Type())

	require.Equal(t, 1, factory.opened)
	require.Equal(t, 1, session.closed)
}

func TestSearchGoogleChaosBeforeSessionOpens(t *testing.T) {
	factory := &fakeFactory{session: &fakeSession{}}
	a := newTestActivities(factory, t.TempDir())
	a.Simulator = faults.NewSeededSimulator(1)
	a.Chaos = ChaosRates{SearchStart: 1}
	env := newActivityEnv(t, a)

	_, err := env.ExecuteActivity(a.SearchGoogle, "anything")
	require.Error(t, err)
	require.Zero(t, factory.opened, "no session may be acquired before the first checkpoint passes")
}

func TestSearchGoogleCloseFailureDoesNotMaskResult(t *testing.T) {
	session := &fakeSession{
		primary:  []SearchResult{{Title: "A", URL: "https://a.example", Snippet: "s"}},
		closeErr: errors.New("browser already gone"),
	}
	a := newTestActivities(&fakeFactory{session: session}, t.TempDir())
	env := newActivityEnv(t, a)

	val, err := env.ExecuteActivity(a.SearchGoogle, "anything")
	require.NoError(t, err)

	var results []SearchResult
	require.NoError(t, val.Get(&results))
	require.Len(t, results, 1)
}

func TestSearchGoogleMissingCredentialIsFatal(t *testing.T) {
	factory := &fakeFactory{err: browser.ErrNoCredential}
	classifier := faults.NewClassifier()
	classifier.MarkFatal(browser.ErrNoCredential)
	a := NewActivities(factory, faults.NewSimulator(false), classifier, t.TempDir())
	a.settleDelay = 0
	env := newActivityEnv(t, a)

	_, err := env.ExecuteActivity(a.SearchGoogle, "anything")
	require.Error(t, err)

	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, ConfigurationErrorType, appErr.Type())
	require.True(t, appErr.NonRetryable())
}

func TestSimulateFailureStep(t *testing.T) {
	a := newTestActivities(&fakeFactory{}, t.TempDir())
	a.Simulator = faults.NewSeededSimulator(9)
	env := newActivityEnv(t, a)

	_, err := env.ExecuteActivity(a.SimulateFailure, 1.0)
	require.Error(t, err)
	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, SimulatedFailureType, appErr.Type())

	_, err = env.ExecuteActivity(a.SimulateFailure, 0.0)
	require.NoError(t, err)
}

func TestGenerateReportWritesFile(t *testing.T) {
	dir := t.TempDir()
	a := newTestActivities(&fakeFactory{}, dir)
	env := newActivityEnv(t, a)

	results := []SearchResult{{Title: "AI Ethics Guidelines", URL: "https://example.com/ai-ethics", Snippet: "A survey."}}
	val, err := env.ExecuteActivity(a.GenerateReport, "artificial intelligence ethics", results)
	require.NoError(t, err)

	var path string
	require.NoError(t, val.Get(&path))
	require.Equal(t, dir, filepath.Dir(path))
	require.Regexp(t, regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}-\d{2}-\d{2}-\d{3}Z-report-artificial-intellige\.txt$`), filepath.Base(path))

	doc, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(doc), "RESEARCH REPORT: ARTIFICIAL INTELLIGENCE ETHICS")
	require.Contains(t, string(doc), "1. AI Ethics Guidelines")
	require.Contains(t, string(doc), "END OF REPORT")
}

func TestGenerateReportEmptyResults(t *testing.T) {
	dir := t.TempDir()
	a := newTestActivities(&fakeFactory{}, dir)
	env := newActivityEnv(t, a)

	val, err := env.ExecuteActivity(a.GenerateReport, "obscure topic", []SearchResult{})
	require.NoError(t, err)

	var path string
	require.NoError(t, val.Get(&path))
	doc, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(doc), "No search results found. This could be due to:")
	require.NotContains(t, string(doc), "SEARCH RESULTS (")
}

func TestGenerateReportCreatesOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "research_outputs")
	a := newTestActivities(&fakeFactory{}, dir)
	env := newActivityEnv(t, a)

	val, err := env.ExecuteActivity(a.GenerateReport, "anything", []SearchResult{})
	require.NoError(t, err)

	var path string
	require.NoError(t, val.Get(&path))
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestGenerateReportChaos(t *testing.T) {
	dir := t.TempDir()
	a := newTestActivities(&fakeFactory{}, dir)
	a.Simulator = faults.NewSeededSimulator(2)
	a.Chaos = ChaosRates{Report: 1}
	env := newActivityEnv(t, a)

	_, err := env.ExecuteActivity(a.GenerateReport, "anything", []SearchResult{})
	require.Error(t, err)

	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, SimulatedFailureType, appErr.Type())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries, "no partial report may be written on a chaos failure")
}
