package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"

	"github.com/theirongolddev/exptrack/internal/model"
)

// DefaultExportName is used when the server names no attachment.
const DefaultExportName = "expenses.csv"

type credentials struct {
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
	Password string `json:"password"`
}

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, email, password string) (model.Session, error) {
	var sess model.Session
	err := c.doJSON(ctx, http.MethodPost, "/auth/login", nil, credentials{Email: email, Password: password}, &sess)
	if err != nil {
		return model.Session{}, err
	}
	if !sess.Valid() {
		return model.Session{}, errors.New("api: login response carried no token")
	}
	return sess, nil
}

// Signup creates an account and returns its session.
func (c *Client) Signup(ctx context.Context, email, username, password string) (model.Session, error) {
	var sess model.Session
	in := credentials{Email: email, Username: username, Password: password}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/signup", nil, in, &sess); err != nil {
		return model.Session{}, err
	}
	if !sess.Valid() {
		return model.Session{}, errors.New("api: signup response carried no token")
	}
	return sess, nil
}

// Me returns the user the current token belongs to.
func (c *Client) Me(ctx context.Context) (model.User, error) {
	var out struct {
		User model.User `json:"user"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/me", nil, nil, &out); err != nil {
		return model.User{}, err
	}
	return out.User, nil
}

// ListExpenses returns every expense, most recent first.
func (c *Client) ListExpenses(ctx context.Context) ([]model.Expense, error) {
	var out []model.Expense
	if err := c.doJSON(ctx, http.MethodGet, "/expenses", nil, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Expense{}
	}
	return out, nil
}

// CreateExpense posts a new expense.
func (c *Client) CreateExpense(ctx context.Context, p model.ExpensePayload) (model.Expense, error) {
	var out model.Expense
	if err := c.doJSON(ctx, http.MethodPost, "/expenses", nil, p, &out); err != nil {
		return model.Expense{}, err
	}
	return out, nil
}

// UpdateExpense replaces the fields of expense id.
func (c *Client) UpdateExpense(ctx context.Context, id int64, p model.ExpensePayload) (model.Expense, error) {
	var out model.Expense
	if err := c.doJSON(ctx, http.MethodPut, expensePath(id), nil, p, &out); err != nil {
		return model.Expense{}, err
	}
	return out, nil
}

// DeleteExpense removes expense id. Both 204 and 200 with a body succeed.
func (c *Client) DeleteExpense(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, expensePath(id), nil, nil, nil)
}

// Stats returns the aggregate for the filter.
func (c *Client) Stats(ctx context.Context, f model.Filter) (model.Stats, error) {
	var out model.Stats
	if err := c.doJSON(ctx, http.MethodGet, "/expenses/stats", f.Query(), nil, &out); err != nil {
		return model.Stats{}, err
	}
	return out, nil
}

// Monthly returns the summary of month, formatted "YYYY-MM".
func (c *Client) Monthly(ctx context.Context, month string) (model.Monthly, error) {
	var out model.Monthly
	q := url.Values{}
	if month != "" {
		q.Set("month", month)
	}
	if err := c.doJSON(ctx, http.MethodGet, "/expenses/monthly", q, nil, &out); err != nil {
		return model.Monthly{}, err
	}
	return out, nil
}

// Predict returns the next-month spend estimate.
func (c *Client) Predict(ctx context.Context) (model.Prediction, error) {
	var out model.Prediction
	if err := c.doJSON(ctx, http.MethodGet, "/predict", nil, nil, &out); err != nil {
		return model.Prediction{}, err
	}
	return out, nil
}

// Export streams the filtered CSV into w and returns the attachment name.
func (c *Client) Export(ctx context.Context, f model.Filter, w io.Writer) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.send(ctx, http.MethodGet, "/expenses/export", f.Query(), nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		return "", c.checkStatus(resp.StatusCode, body)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", fmt.Errorf("api: writing export: %w", err)
	}
	return attachmentName(resp.Header.Get("Content-Disposition")), nil
}

func expensePath(id int64) string {
	return "/expenses/" + strconv.FormatInt(id, 10)
}

// attachmentName returns the base filename from a Content-Disposition value.
func attachmentName(header string) string {
	if header == "" {
		return DefaultExportName
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return DefaultExportName
	}
	name := filepath.Base(params["filename"])
	if name == "" || name == "." || name == "/" {
		return DefaultExportName
	}
	return name
}
