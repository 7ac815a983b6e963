package wcl

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"raidbench/internal/config"
	"raidbench/internal/constants"
	"raidbench/internal/domain"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"github.com/valyala/fasthttp"
)

// Fight times in the GraphQL payload are usually relative to report start;
// anything at or above this is treated as already absolute.
const absMsThreshold = int64(1_000_000_000_000)

const reportQuery = `
query ReportFightsAndActors($code: String!) {
  reportData {
    report(code: $code) {
      code
      title
      startTime
      endTime
      owner { name }
      fights { id encounterID name difficulty startTime endTime friendlyPlayers kill }
      masterData(translate: true) { actors(type: "Player") { id name server subType type } }
    }
  }
}
`

type Client struct {
	cfg    *config.Config
	client *fasthttp.Client
	logger zerolog.Logger

	tokenMu     sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewClient(cfg *config.Config, logger zerolog.Logger) *Client {
	return &Client{
		cfg:    cfg,
		logger: logger.With().Str("component", "wcl").Logger(),
		client: &fasthttp.Client{
			MaxConnsPerHost:     10,
			ReadTimeout:         constants.WCLTimeout,
			WriteTimeout:        constants.WCLTimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
	}
}

// ReportBundle is the report payload the ingest pipeline consumes. Times come
// back as GraphQL floats.
type ReportBundle struct {
	Code      string  `json:"code"`
	Title     string  `json:"title"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
	Owner     struct {
		Name string `json:"name"`
	} `json:"owner"`
	Fights     []ReportFight `json:"fights"`
	MasterData struct {
		Actors []ReportActor `json:"actors"`
	} `json:"masterData"`
}

type ReportFight struct {
	ID              int     `json:"id"`
	EncounterID     int     `json:"encounterID"`
	Name            string  `json:"name"`
	Difficulty      int     `json:"difficulty"`
	StartTime       float64 `json:"startTime"`
	EndTime         float64 `json:"endTime"`
	FriendlyPlayers []int   `json:"friendlyPlayers"`
	Kill            bool    `json:"kill"`
}

type ReportActor struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Server  string `json:"server"`
	SubType string `json:"subType"`
	Type    string `json:"type"`
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type reportResponse struct {
	Data struct {
		ReportData struct {
			Report *ReportBundle `json:"report"`
		} `json:"reportData"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// Token returns a cached OAuth client-credentials token, refreshing it
// shortly before expiry.
func (c *Client) Token(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	c.logger.Info().Msg("requesting OAuth token")

	var body []byte
	err := c.withRetry(ctx, func(ctx context.Context) error {
		req := fasthttp.AcquireRequest()
		resp := fasthttp.AcquireResponse()
		defer fasthttp.ReleaseRequest(req)
		defer fasthttp.ReleaseResponse(resp)

		req.SetRequestURI(c.cfg.WCLTokenURL)
		req.Header.SetMethod(fasthttp.MethodPost)
		req.Header.SetContentType("application/x-www-form-urlencoded")
		basic := base64.StdEncoding.EncodeToString([]byte(c.cfg.WCLClientID + ":" + c.cfg.WCLClientSecret))
		req.Header.Set("Authorization", "Basic "+basic)
		req.SetBodyString("grant_type=client_credentials")

		if err := c.do(ctx, req, resp); err != nil {
			return retry.RetryableError(err)
		}
		if err := statusError(resp.StatusCode()); err != nil {
			return err
		}
		body = append(body[:0], resp.Body()...)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	c.token = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - constants.TokenEarlyExpiry)
	return c.token, nil
}

// FetchReport fetches one report with its fights and player actors.
func (c *Client) FetchReport(ctx context.Context, code string) (*ReportBundle, error) {
	token, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(graphQLRequest{
		Query:     reportQuery,
		Variables: map[string]any{"code": code},
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info().Str("code", code).Msg("fetching report")

	var body []byte
	err = c.withRetry(ctx, func(ctx context.Context) error {
		req := fasthttp.AcquireRequest()
		resp := fasthttp.AcquireResponse()
		defer fasthttp.ReleaseRequest(req)
		defer fasthttp.ReleaseResponse(resp)

		req.SetRequestURI(c.cfg.WCLAPIURL)
		req.Header.SetMethod(fasthttp.MethodPost)
		req.Header.SetContentType("application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		req.SetBody(payload)

		if err := c.do(ctx, req, resp); err != nil {
			return retry.RetryableError(err)
		}
		if err := statusError(resp.StatusCode()); err != nil {
			return err
		}
		body = append(body[:0], resp.Body()...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("report %s: %w", code, err)
	}

	var result reportResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("report %s: failed to decode response: %w", code, err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("report %s: GraphQL error: %s", code, result.Errors[0].Message)
	}
	if result.Data.ReportData.Report == nil {
		return nil, fmt.Errorf("report %s: not found", code)
	}
	return result.Data.ReportData.Report, nil
}

func (c *Client) do(ctx context.Context, req *fasthttp.Request, resp *fasthttp.Response) error {
	if deadline, ok := ctx.Deadline(); ok {
		return c.client.DoDeadline(req, resp, deadline)
	}
	return c.client.Do(req, resp)
}

func (c *Client) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(constants.WCLMaxRetries, retry.NewExponential(constants.WCLRetryBase))
	return retry.Do(ctx, backoff, fn)
}

func statusError(code int) error {
	switch {
	case code == fasthttp.StatusOK:
		return nil
	case code == fasthttp.StatusTooManyRequests || code >= 500:
		return retry.RetryableError(fmt.Errorf("API error: %d", code))
	default:
		return fmt.Errorf("API error: %d", code)
	}
}

// Observations flattens a report bundle into per-report fight observations.
// Participant ids resolve through the player actor table; non-player actors
// and unknown ids are dropped. Relative fight times are shifted onto the
// report's absolute start.
func Observations(bundle *ReportBundle, nightID string) []domain.FightObservation {
	names := make(map[int]string, len(bundle.MasterData.Actors))
	for _, a := range bundle.MasterData.Actors {
		if a.Type != "Player" {
			continue
		}
		name := a.Name
		if a.Server != "" {
			name = a.Name + "-" + a.Server
		}
		names[a.ID] = name
	}

	reportStart := int64(bundle.StartTime)
	out := make([]domain.FightObservation, 0, len(bundle.Fights))
	for _, f := range bundle.Fights {
		// Fights missing timestamps decode to zero and cannot be placed on
		// the night.
		if f.StartTime <= 0 || f.EndTime <= 0 {
			continue
		}
		start, end := int64(f.StartTime), int64(f.EndTime)
		if start < absMsThreshold && end < absMsThreshold {
			start += reportStart
			end += reportStart
		}

		var participants []string
		for _, id := range f.FriendlyPlayers {
			if name, ok := names[id]; ok {
				participants = append(participants, name)
			}
		}

		out = append(out, domain.FightObservation{
			ReportCode:   bundle.Code,
			FightID:      f.ID,
			EncounterID:  f.EncounterID,
			Difficulty:   f.Difficulty,
			Name:         f.Name,
			StartMs:      start,
			EndMs:        end,
			Kill:         f.Kill,
			Participants: participants,
			NightID:      nightID,
		})
	}
	return out
}
