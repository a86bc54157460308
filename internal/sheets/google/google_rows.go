package google

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	gsheet "google.golang.org/api/sheets/v4"
)

// Row-level spreadsheet plumbing shared by every tab.

// readTab returns all data rows of a tab as trimmed strings, header excluded.
func (c *Client) readTab(ctx context.Context, tab string) ([][]string, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:H", tab)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	var out [][]string
	for i, row := range resp.Values {
		cols := toStrings(row)
		// Header row carries column names, not a record key.
		if i == 0 && isHeader(cols) {
			continue
		}
		if len(cols) == 0 || cols[0] == "" {
			continue
		}
		out = append(out, cols)
	}
	return out, nil
}

// findRow locates the first row whose column A equals key. It returns the
// 1-based spreadsheet row number, or 0 when absent.
func (c *Client) findRow(ctx context.Context, tab, key string) (int, []string, error) {
	if c.svc == nil {
		return 0, nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:H", tab)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, nil, fmt.Errorf("read %s: %w", rng, err)
	}
	for i, row := range resp.Values {
		cols := toStrings(row)
		if safeGet(cols, 0) == key {
			return i + 1, cols, nil
		}
	}
	return 0, nil, nil
}

func (c *Client) appendRow(ctx context.Context, tab string, row []any) error {
	rng := fmt.Sprintf("%s!A:H", tab)
	vr := &gsheet.ValueRange{Values: [][]any{row}}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", tab, err)
	}
	return nil
}

// upsertRow rewrites the row keyed by column A, appending when absent.
func (c *Client) upsertRow(ctx context.Context, tab, key string, row []any) error {
	at, _, err := c.findRow(ctx, tab, key)
	if err != nil {
		return err
	}
	if at == 0 {
		return c.appendRow(ctx, tab, row)
	}
	rng := fmt.Sprintf("%s!A%d:H%d", tab, at, at)
	vr := &gsheet.ValueRange{Values: [][]any{row}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

// upsertAchievementRow keys on username+badge ID, which span columns A and B.
func (c *Client) upsertAchievementRow(ctx context.Context, key string, row []any) error {
	rows, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID,
		fmt.Sprintf("%s!A:B", c.achievementsTab)).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s: %w", c.achievementsTab, err)
	}
	at := 0
	for i, r := range rows.Values {
		cols := toStrings(r)
		if safeGet(cols, 0)+"/"+safeGet(cols, 1) == key {
			at = i + 1
			break
		}
	}
	if at == 0 {
		return c.appendRow(ctx, c.achievementsTab, row)
	}
	rng := fmt.Sprintf("%s!A%d:H%d", c.achievementsTab, at, at)
	vr := &gsheet.ValueRange{Values: [][]any{row}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

func (c *Client) deleteRowByID(ctx context.Context, tab, id string) error {
	at, _, err := c.findRow(ctx, tab, id)
	if err != nil {
		return err
	}
	if at == 0 {
		// Absent rows are fine: deletes are idempotent.
		return nil
	}
	return c.deleteRows(ctx, tab, []int{at})
}

// deleteRowsByUsername removes every row whose given column equals username.
func (c *Client) deleteRowsByUsername(ctx context.Context, tab string, col int, username string) error {
	rows, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID,
		fmt.Sprintf("%s!A:H", tab)).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s: %w", tab, err)
	}
	var targets []int
	for i, r := range rows.Values {
		cols := toStrings(r)
		if safeGet(cols, col) == username {
			targets = append(targets, i+1)
		}
	}
	return c.deleteRows(ctx, tab, targets)
}

// deleteRows removes the given 1-based rows, bottom-up so earlier deletions
// do not shift later indices.
func (c *Client) deleteRows(ctx context.Context, tab string, rows []int) error {
	if len(rows) == 0 {
		return nil
	}
	sheetID, err := c.resolveSheetID(ctx, tab)
	if err != nil {
		return err
	}
	sort.Sort(sort.Reverse(sort.IntSlice(rows)))

	requests := make([]*gsheet.Request, 0, len(rows))
	for _, row := range rows {
		requests = append(requests, &gsheet.Request{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row - 1),
					EndIndex:   int64(row),
				},
			},
		})
	}
	_, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID,
		&gsheet.BatchUpdateSpreadsheetRequest{Requests: requests}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("delete rows in %s: %w", tab, err)
	}
	return nil
}

// resolveSheetID maps a tab name to its numeric sheetId, cached per client.
func (c *Client) resolveSheetID(ctx context.Context, tab string) (int64, error) {
	c.mu.Lock()
	if id, ok := c.sheetIDs[tab]; ok {
		c.mu.Unlock()
		return id, nil
	}
	c.mu.Unlock()

	meta, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet metadata: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range meta.Sheets {
		if s.Properties != nil {
			c.sheetIDs[s.Properties.Title] = s.Properties.SheetId
		}
	}
	id, ok := c.sheetIDs[tab]
	if !ok {
		return 0, fmt.Errorf("tab %q not found in spreadsheet", tab)
	}
	return id, nil
}

func isHeader(cols []string) bool {
	switch strings.ToLower(safeGet(cols, 0)) {
	case "id", "username":
		return true
	}
	return false
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
