package opentdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"prepmaster-service/internal/app"
	"prepmaster-service/internal/domain"
)

// Client reads questions from an Open Trivia DB compatible endpoint, e.g.
// https://opentdb.com/api.php.
type Client struct {
	endpoint string
	http     *http.Client
}

func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

type apiResponse struct {
	ResponseCode int `json:"response_code"`
	Results      []struct {
		Category         string   `json:"category"`
		Type             string   `json:"type"`
		Difficulty       string   `json:"difficulty"`
		Question         string   `json:"question"`
		CorrectAnswer    string   `json:"correct_answer"`
		IncorrectAnswers []string `json:"incorrect_answers"`
	} `json:"results"`
}

func (c *Client) FetchQuestions(ctx context.Context, q app.ImportQuery) ([]app.ExternalQuestion, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: bad endpoint: %v", domain.ErrUpstream, err)
	}
	params := u.Query()
	params.Set("amount", strconv.Itoa(q.Amount))
	if q.Difficulty != "" {
		params.Set("difficulty", string(q.Difficulty))
	}
	if q.Category != "" {
		params.Set("category", q.Category)
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", domain.ErrUpstream, resp.StatusCode)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", domain.ErrUpstream, err)
	}
	// 0 is success; 1 means not enough questions for the query.
	if body.ResponseCode != 0 {
		return nil, fmt.Errorf("%w: response code %d", domain.ErrUpstream, body.ResponseCode)
	}

	out := make([]app.ExternalQuestion, 0, len(body.Results))
	for _, r := range body.Results {
		out = append(out, app.ExternalQuestion{
			Category:         r.Category,
			Difficulty:       r.Difficulty,
			Question:         r.Question,
			CorrectAnswer:    r.CorrectAnswer,
			IncorrectAnswers: r.IncorrectAnswers,
		})
	}
	return out, nil
}

var _ app.QuestionProvider = (*Client)(nil)
