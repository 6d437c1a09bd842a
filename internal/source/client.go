package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"coh3-monitor/internal/config"
	"coh3-monitor/internal/constants"

	"github.com/valyala/fasthttp"
	"golang.org/x/sync/errgroup"
)

// ErrIncomplete reports a structured response that arrived but did not carry
// a usable match listing. The fetcher treats it like any other strategy
// failure and falls through to scraping.
var ErrIncomplete = errors.New("structured payload incomplete")

// Client fetches the machine-readable match listing for one player from the
// relic community API. It is stateless and performs no retries of its own.
type Client struct {
	baseURL string
	client  *fasthttp.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: cfg.RelicAPIURL,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         constants.ExternalAPITimeout,
			WriteTimeout:        constants.ExternalAPITimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
	}
}

// FetchPlayer loads the recent match history and the personal stat group for
// one player id in parallel. The personal stat group carries the current
// display alias used for roster name refresh.
func (c *Client) FetchPlayer(ctx context.Context, playerID string) (*PlayerData, error) {
	g, gCtx := errgroup.WithContext(ctx)

	var history *RecentMatchHistoryResponse
	var personal *PersonalStatResponse

	g.Go(func() error {
		var err error
		history, err = c.GetRecentMatchHistory(gCtx, playerID)
		return err
	})

	g.Go(func() error {
		var err error
		personal, err = c.GetPersonalStat(gCtx, playerID)
		// Alias refresh is best-effort; the match listing alone is enough.
		if err != nil {
			personal = nil
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if history.Result.Code != 0 {
		return nil, fmt.Errorf("%w: result code %d (%s)",
			ErrIncomplete, history.Result.Code, history.Result.Message)
	}
	if len(history.MatchHistoryStats) == 0 {
		return nil, fmt.Errorf("%w: no matches in listing", ErrIncomplete)
	}

	data := &PlayerData{History: history}
	if personal != nil {
		data.Alias = personal.AliasFor(playerID)
	}
	return data, nil
}

func (c *Client) GetRecentMatchHistory(ctx context.Context, playerID string) (*RecentMatchHistoryResponse, error) {
	u := fmt.Sprintf("%s/community/leaderboard/getRecentMatchHistory?title=coh3&profile_ids=%s",
		c.baseURL, url.QueryEscape("["+playerID+"]"))
	return doRequest[RecentMatchHistoryResponse](ctx, c, u)
}

func (c *Client) GetPersonalStat(ctx context.Context, playerID string) (*PersonalStatResponse, error) {
	u := fmt.Sprintf("%s/community/leaderboard/GetPersonalStat?title=coh3&profile_ids=%s",
		c.baseURL, url.QueryEscape("["+playerID+"]"))
	return doRequest[PersonalStatResponse](ctx, c, u)
}

func doRequest[T any](ctx context.Context, client *Client, url string) (*T, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)

	deadline, ok := ctx.Deadline()
	if ok {
		if err := client.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, err
		}
	} else {
		if err := client.client.Do(req, resp); err != nil {
			return nil, err
		}
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("API error: %d", resp.StatusCode())
	}

	var result T
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}
