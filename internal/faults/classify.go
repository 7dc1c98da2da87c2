package faults

import (
	"errors"
	"fmt"
	"regexp"
)

// Severity classifies a collaborator error for retry purposes.
type Severity string

const (
	SeverityRetryable Severity = "retryable"
	SeverityFatal     Severity = "fatal"
)

// Classifier decides whether an error deserves another attempt. The
// orchestrator owns the retry budget, so everything is retryable unless a
// fatal rule matches; the rules exist to keep configuration mistakes from
// burning through that budget.
type Classifier struct {
	fatalErrors []error
	fatalRegex  []*regexp.Regexp
}

func NewClassifier() *Classifier {
	return &Classifier{}
}

// MarkFatal registers a sentinel error, matched with errors.Is.
func (c *Classifier) MarkFatal(err error) {
	if err == nil {
		return
	}
	c.fatalErrors = append(c.fatalErrors, err)
}

// MarkFatalPattern registers a regular expression matched against error text.
func (c *Classifier) MarkFatalPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid fatal pattern %q: %w", pattern, err)
	}
	c.fatalRegex = append(c.fatalRegex, re)
	return nil
}

// Classify returns the severity for err. Injected failures are always
// retryable, whatever the rules say.
func (c *Classifier) Classify(err error) Severity {
	if c == nil || err == nil {
		return SeverityRetryable
	}
	if IsSimulated(err) {
		return SeverityRetryable
	}
	for _, sentinel := range c.fatalErrors {
		if errors.Is(err, sentinel) {
			return SeverityFatal
		}
	}
	msg := err.Error()
	for _, re := range c.fatalRegex {
		if re.MatchString(msg) {
			return SeverityFatal
		}
	}
	return SeverityRetryable
}
