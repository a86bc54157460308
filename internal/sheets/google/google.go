// Package google implements the cloud document store on a Google Sheets
// spreadsheet: one tab per collection, one row per record, the record ID in
// column A (username for the single-row-per-user tabs).
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"financequest/internal/core"
	"financequest/internal/sheets"
	"financequest/internal/store"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string

	usersTab        string
	profilesTab     string
	transactionsTab string
	goalsTab        string
	achievementsTab string

	mu       sync.Mutex
	sheetIDs map[string]int64 // tab name -> sheetId, resolved lazily
}

// Ensure interface conformance
var (
	_ store.Store       = (*Client)(nil)
	_ sheets.Replicator = (*Client)(nil)
)

// NewFromEnv creates a Sheets client from environment variables.
// Required: GOOGLE_SPREADSHEET_ID plus service account credentials in
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS. Tab names default to Users, Profiles,
// Transactions, Goals, Achievements and can be overridden with
// GOOGLE_<NAME>_TAB.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:             svc,
		spreadsheetID:   spreadsheetID,
		usersTab:        tabName("GOOGLE_USERS_TAB", "Users"),
		profilesTab:     tabName("GOOGLE_PROFILES_TAB", "Profiles"),
		transactionsTab: tabName("GOOGLE_TRANSACTIONS_TAB", "Transactions"),
		goalsTab:        tabName("GOOGLE_GOALS_TAB", "Goals"),
		achievementsTab: tabName("GOOGLE_ACHIEVEMENTS_TAB", "Achievements"),
		sheetIDs:        map[string]int64{},
	}, nil
}

func tabName(envKey, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		return v
	}
	return fallback
}

// newSheetsService initializes a Sheets Service using Service Account
// credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created")
	return service, nil
}

func (c *Client) CreateUser(ctx context.Context, name, username, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if row, _, err := c.findRow(ctx, c.usersTab, username); err != nil {
		return err
	} else if row > 0 {
		return core.ErrDuplicateUsername
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := c.appendRow(ctx, c.usersTab, []any{username, strings.TrimSpace(name), string(hash)}); err != nil {
		return err
	}

	p := core.NewProfile(name, username)
	if err := c.SaveProfile(ctx, p); err != nil {
		return err
	}

	slog.InfoContext(ctx, "User registered in spreadsheet", "username", username)
	return nil
}

func (c *Client) Authenticate(ctx context.Context, username, password string) (core.Profile, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	row, cols, err := c.findRow(ctx, c.usersTab, username)
	if err != nil {
		return core.Profile{}, err
	}
	if row == 0 {
		return core.Profile{}, store.ErrNotFound
	}
	hash := safeGet(cols, 2)
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return core.Profile{}, core.ErrBadCredentials
	}
	return c.LoadProfile(ctx, username)
}

func (c *Client) LoadProfile(ctx context.Context, username string) (core.Profile, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	row, cols, err := c.findRow(ctx, c.profilesTab, username)
	if err != nil {
		return core.Profile{}, err
	}
	if row == 0 {
		return core.Profile{}, store.ErrNotFound
	}
	p := core.Profile{
		Username: username,
		Name:     safeGet(cols, 1),
		Level:    atoiOr(safeGet(cols, 2), 1),
		XP:       atoiOr(safeGet(cols, 3), 0),
		MaxXP:    atoiOr(safeGet(cols, 4), 100),
		Streak:   atoiOr(safeGet(cols, 5), 0),
	}
	if raw := safeGet(cols, 6); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return core.Profile{}, fmt.Errorf("parse last login: %w", err)
		}
		p.LastLogin = t
	}
	return p, nil
}

func (c *Client) SaveProfile(ctx context.Context, p core.Profile) error {
	lastLogin := ""
	if !p.LastLogin.IsZero() {
		lastLogin = p.LastLogin.UTC().Format(time.RFC3339)
	}
	row := []any{p.Username, p.Name, p.Level, p.XP, p.MaxXP, p.Streak, lastLogin}
	return c.upsertRow(ctx, c.profilesTab, p.Username, row)
}

func (c *Client) ListTransactions(ctx context.Context, username string) ([]core.Transaction, error) {
	rows, err := c.readTab(ctx, c.transactionsTab)
	if err != nil {
		return nil, err
	}
	var out []core.Transaction
	for _, cols := range rows {
		if safeGet(cols, 1) != username {
			continue
		}
		tx, err := parseTransactionRow(cols)
		if err != nil {
			slog.WarnContext(ctx, "Skipping malformed transaction row",
				"id", safeGet(cols, 0), "error", err)
			continue
		}
		out = append(out, tx)
	}
	// Newest first; the generated IDs order by creation time and break date
	// ties between same-day rows.
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (c *Client) SaveTransaction(ctx context.Context, username string, tx core.Transaction) error {
	row := []any{tx.ID, username, string(tx.Kind), tx.Amount, tx.Description, tx.Category, tx.Date.String(), tx.XP}
	return c.upsertRow(ctx, c.transactionsTab, tx.ID, row)
}

func (c *Client) DeleteTransaction(ctx context.Context, username, id string) error {
	return c.deleteRowByID(ctx, c.transactionsTab, id)
}

func (c *Client) ListGoals(ctx context.Context, username string) ([]core.Goal, error) {
	rows, err := c.readTab(ctx, c.goalsTab)
	if err != nil {
		return nil, err
	}
	var out []core.Goal
	for _, cols := range rows {
		if safeGet(cols, 1) != username {
			continue
		}
		g, err := parseGoalRow(cols)
		if err != nil {
			slog.WarnContext(ctx, "Skipping malformed goal row",
				"id", safeGet(cols, 0), "error", err)
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

func (c *Client) SaveGoal(ctx context.Context, username string, g core.Goal) error {
	row := []any{g.ID, username, g.Name, g.TargetAmount, g.SavedAmount, g.TargetDate.String(), g.Icon}
	return c.upsertRow(ctx, c.goalsTab, g.ID, row)
}

func (c *Client) DeleteGoal(ctx context.Context, username, id string) error {
	return c.deleteRowByID(ctx, c.goalsTab, id)
}

func (c *Client) ListAchievements(ctx context.Context, username string) ([]core.Achievement, error) {
	rows, err := c.readTab(ctx, c.achievementsTab)
	if err != nil {
		return nil, err
	}
	var out []core.Achievement
	for _, cols := range rows {
		if safeGet(cols, 0) != username {
			continue
		}
		a := core.Achievement{
			ID:          atoiOr(safeGet(cols, 1), 0),
			Name:        safeGet(cols, 2),
			Description: safeGet(cols, 3),
			Icon:        safeGet(cols, 4),
			Earned:      safeGet(cols, 5) == "true",
		}
		if raw := safeGet(cols, 6); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err == nil {
				a.EarnedDate = t
			}
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *Client) SaveAchievements(ctx context.Context, username string, list []core.Achievement) error {
	for _, a := range list {
		earnedDate := ""
		if !a.EarnedDate.IsZero() {
			earnedDate = a.EarnedDate.UTC().Format(time.RFC3339)
		}
		key := fmt.Sprintf("%s/%d", username, a.ID)
		row := []any{username, a.ID, a.Name, a.Description, a.Icon, strconv.FormatBool(a.Earned), earnedDate}
		if err := c.upsertAchievementRow(ctx, key, row); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) Purge(ctx context.Context, username string) error {
	if err := c.deleteRowsByUsername(ctx, c.transactionsTab, 1, username); err != nil {
		return err
	}
	return c.deleteRowsByUsername(ctx, c.goalsTab, 1, username)
}

func parseTransactionRow(cols []string) (core.Transaction, error) {
	amount, err := strconv.ParseInt(safeGet(cols, 3), 10, 64)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse amount: %w", err)
	}
	date, err := core.ParseDate(safeGet(cols, 6))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse date: %w", err)
	}
	return core.Transaction{
		ID:          safeGet(cols, 0),
		Kind:        core.TransactionKind(safeGet(cols, 2)),
		Amount:      amount,
		Description: safeGet(cols, 4),
		Category:    safeGet(cols, 5),
		Date:        date,
		XP:          atoiOr(safeGet(cols, 7), 0),
	}, nil
}

func parseGoalRow(cols []string) (core.Goal, error) {
	target, err := strconv.ParseInt(safeGet(cols, 3), 10, 64)
	if err != nil {
		return core.Goal{}, fmt.Errorf("parse target amount: %w", err)
	}
	saved, err := strconv.ParseInt(safeGet(cols, 4), 10, 64)
	if err != nil {
		return core.Goal{}, fmt.Errorf("parse saved amount: %w", err)
	}
	date, err := core.ParseDate(safeGet(cols, 5))
	if err != nil {
		return core.Goal{}, fmt.Errorf("parse target date: %w", err)
	}
	return core.Goal{
		ID:           safeGet(cols, 0),
		Name:         safeGet(cols, 2),
		TargetAmount: target,
		SavedAmount:  saved,
		TargetDate:   date,
		Icon:         safeGet(cols, 6),
	}, nil
}

func atoiOr(s string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return v
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
