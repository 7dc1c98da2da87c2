package browser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
)

// driver is the primitive surface the planner drives. chromeDriver is the
// real implementation; tests substitute a scripted one.
type driver interface {
	navigate(ctx context.Context, url string) error
	click(ctx context.Context, selector string) error
	typeInto(ctx context.Context, selector, text string) error
	press(ctx context.Context, key string) error
	snapshotElements(ctx context.Context) ([]pageElement, error)
	pageContent(ctx context.Context) (html string, pageURL string, err error)
	close() error
}

// command is the one concrete step the model plans per instruction.
type command struct {
	Action  string `json:"action"`
	Element int    `json:"element"`
	Text    string `json:"text"`
}

func parseCommand(raw string) (command, error) {
	doc, err := extractJSON(raw)
	if err != nil {
		return command{}, err
	}
	var cmd command
	if err := json.Unmarshal([]byte(doc), &cmd); err != nil {
		return command{}, fmt.Errorf("failed to decode browser command: %w", err)
	}
	if cmd.Action == "" {
		return command{}, fmt.Errorf("browser command missing action")
	}
	return cmd, nil
}

// agenticController interprets instructions with an LLM: snapshot the page,
// ask the model for one command, perform it.
type agenticController struct {
	drv    driver
	model  llms.Model
	logger *zap.Logger
}

func (c *agenticController) Navigate(ctx context.Context, url string) error {
	return c.drv.navigate(ctx, url)
}

func (c *agenticController) Act(ctx context.Context, instruction string) error {
	elements, err := c.drv.snapshotElements(ctx)
	if err != nil {
		return err
	}
	raw, err := c.generate(ctx, actSystemPrompt, actPrompt(instruction, elements))
	if err != nil {
		return fmt.Errorf("failed to plan %q: %w", instruction, err)
	}
	cmd, err := parseCommand(raw)
	if err != nil {
		return fmt.Errorf("failed to plan %q: %w", instruction, err)
	}
	c.logger.Debug("planned browser command",
		zap.String("instruction", instruction),
		zap.String("action", cmd.Action),
		zap.Int("element", cmd.Element))
	return c.perform(ctx, cmd)
}

func (c *agenticController) perform(ctx context.Context, cmd command) error {
	switch cmd.Action {
	case "click":
		return c.drv.click(ctx, elementSelector(cmd.Element))
	case "type":
		return c.drv.typeInto(ctx, elementSelector(cmd.Element), cmd.Text)
	case "press":
		return c.drv.press(ctx, cmd.Text)
	case "navigate":
		return c.drv.navigate(ctx, cmd.Text)
	default:
		return fmt.Errorf("unsupported browser action %q", cmd.Action)
	}
}

func (c *agenticController) ExtractStructured(ctx context.Context, instruction, schema string, out any) error {
	html, pageURL, err := c.drv.pageContent(ctx)
	if err != nil {
		return err
	}
	raw, err := c.generate(ctx, extractSystemPrompt, extractPrompt(instruction, schema, reduceContent(html, pageURL)))
	if err != nil {
		return fmt.Errorf("extraction call failed: %w", err)
	}
	doc, err := extractJSON(raw)
	if err != nil {
		return fmt.Errorf("invalid extraction response: %w", err)
	}
	if err := json.Unmarshal([]byte(doc), out); err != nil {
		return fmt.Errorf("extraction response does not match schema: %w", err)
	}
	return nil
}

func (c *agenticController) Close() error {
	return c.drv.close()
}

func (c *agenticController) generate(ctx context.Context, system, user string) (string, error) {
	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(system)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(user)},
		},
	}
	resp, err := c.model.GenerateContent(ctx, messages, llms.WithTemperature(0))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	return resp.Choices[0].Content, nil
}

// ChromeFactory opens agentic sessions over a local or remote Chrome.
type ChromeFactory struct {
	cfg    Config
	model  llms.Model
	logger *zap.Logger
}

// NewChromeFactory binds a browser configuration to the planning model.
// model may be nil when no credential was configured; Open reports it.
func NewChromeFactory(cfg Config, model llms.Model, logger *zap.Logger) *ChromeFactory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChromeFactory{cfg: cfg, model: model, logger: logger}
}

// Open launches a fresh browser for one session. The credential check runs
// before any browser process starts.
func (f *ChromeFactory) Open(ctx context.Context) (Controller, error) {
	if f.model == nil {
		return nil, ErrNoCredential
	}
	drv, err := newChromeDriver(f.cfg)
	if err != nil {
		return nil, err
	}
	f.logger.Debug("browser session opened", zap.Bool("remote", f.cfg.RemoteWS != ""))
	return &agenticController{drv: drv, model: f.model, logger: f.logger}, nil
}
