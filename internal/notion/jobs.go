package notion

import (
	"context"
	"strings"

	gnt "github.com/dstotijn/go-notion"

	"github.com/abelaba/job-parser/internal/domain"
)

// Property names of the job tracker database.
const (
	PropLink        = "Link"
	PropStatus      = "Status"
	PropCountry     = "Country"
	PropCompany     = "Company"
	PropURL         = "URL"
	PropDescription = "Description"
	PropAppliedDate = "Applied Date"
	PropCreatedDate = "Created Date"
)

// maxRichTextLen is Notion's limit for one rich text object.
const maxRichTextLen = 2000

// helper: build a valid Notion rich_text slice from a plain string, split
// into fragments Notion accepts.
func richText(s string) []gnt.RichText {
	if s == "" {
		return nil
	}
	var out []gnt.RichText
	runes := []rune(s)
	for len(runes) > 0 {
		n := min(len(runes), maxRichTextLen)
		out = append(out, gnt.RichText{
			Text: &gnt.Text{
				Content: string(runes[:n]),
			},
		})
		runes = runes[n:]
	}
	return out
}

func plainText(rt []gnt.RichText) string {
	var b strings.Builder
	for _, r := range rt {
		if r.PlainText != "" {
			b.WriteString(r.PlainText)
		} else if r.Text != nil {
			b.WriteString(r.Text.Content)
		}
	}
	return b.String()
}

// selectName makes s usable as a select option; Notion rejects commas there.
func selectName(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
}

func buildJobPageProperties(url string, f domain.JobFields) gnt.DatabasePageProperties {
	props := gnt.DatabasePageProperties{
		PropStatus: gnt.DatabasePageProperty{
			Status: &gnt.SelectOptions{
				Name: string(domain.StatusNotApplied),
			},
		},
		PropURL: gnt.DatabasePageProperty{
			URL: &url,
		},
	}

	// Link is the title property, linked to the posting
	title := []gnt.RichText{{
		Text: &gnt.Text{
			Content: f.Title,
			Link:    &gnt.Link{URL: url},
		},
	}}
	props[PropLink] = gnt.DatabasePageProperty{Title: title}

	if name := selectName(f.Company); name != "" {
		props[PropCompany] = gnt.DatabasePageProperty{
			Select: &gnt.SelectOptions{Name: name},
		}
	}
	if name := selectName(f.Country); name != "" {
		props[PropCountry] = gnt.DatabasePageProperty{
			Select: &gnt.SelectOptions{Name: name},
		}
	}
	if f.Description != "" {
		props[PropDescription] = gnt.DatabasePageProperty{
			RichText: richText(f.Description),
		}
	}

	return props
}

// mapPage reads a database row into a JobPosting. Absent properties leave the
// field empty; only a page that is not a database row is an error.
func mapPage(page gnt.Page) (domain.JobPosting, error) {
	props, ok := page.Properties.(gnt.DatabasePageProperties)
	if !ok {
		return domain.JobPosting{}, &domain.MappingError{
			RecordID: page.ID,
			Message:  "page has no database properties",
		}
	}

	jp := domain.JobPosting{
		ID:          page.ID,
		CreatedDate: page.CreatedTime,
	}
	if p, ok := props[PropLink]; ok {
		jp.Title = plainText(p.Title)
	}
	if p, ok := props[PropStatus]; ok && p.Status != nil {
		jp.Status = domain.Status(p.Status.Name)
	}
	if p, ok := props[PropCountry]; ok && p.Select != nil {
		jp.Country = p.Select.Name
	}
	if p, ok := props[PropCompany]; ok && p.Select != nil {
		jp.Company = p.Select.Name
	}
	if p, ok := props[PropURL]; ok && p.URL != nil {
		jp.URL = *p.URL
	}
	if p, ok := props[PropDescription]; ok {
		jp.Description = plainText(p.RichText)
	}
	if p, ok := props[PropAppliedDate]; ok && p.Date != nil && !p.Date.Start.IsZero() {
		t := p.Date.Start.Time
		jp.AppliedDate = &t
		jp.AppliedAllDay = !p.Date.Start.HasTime()
	}
	return jp, nil
}

// FindByURL returns the first record saved for url.
func (c *Client) FindByURL(ctx context.Context, url string) (domain.JobPosting, bool, error) {
	s, err := c.session(ctx)
	if err != nil {
		return domain.JobPosting{}, false, storeError(opLookup, err)
	}
	resp, err := s.api.QueryDatabase(ctx, s.databaseID, &gnt.DatabaseQuery{
		Filter: &gnt.DatabaseQueryFilter{
			Property: PropURL,
			DatabaseQueryPropertyFilter: gnt.DatabaseQueryPropertyFilter{
				URL: &gnt.TextPropertyFilter{Equals: url},
			},
		},
		PageSize: 1,
	})
	if err != nil {
		return domain.JobPosting{}, false, storeError(opLookup, err)
	}
	if len(resp.Results) == 0 {
		return domain.JobPosting{}, false, nil
	}
	jp, err := mapPage(resp.Results[0])
	if err != nil {
		return domain.JobPosting{}, false, err
	}
	return jp, true, nil
}

// Exists reports whether url has already been saved.
func (c *Client) Exists(ctx context.Context, url string) (bool, error) {
	_, found, err := c.FindByURL(ctx, url)
	return found, err
}

// Insert creates a "Not Applied" row for an extracted posting.
func (c *Client) Insert(ctx context.Context, url string, f domain.JobFields) (domain.JobPosting, error) {
	s, err := c.session(ctx)
	if err != nil {
		return domain.JobPosting{}, storeError(opInsert, err)
	}

	props := buildJobPageProperties(url, f)
	page, err := s.api.CreatePage(ctx, gnt.CreatePageParams{
		ParentType:             gnt.ParentTypeDatabase,
		ParentID:               s.databaseID,
		DatabasePageProperties: &props,
	})
	if err != nil {
		return domain.JobPosting{}, storeError(opInsert, err)
	}
	return mapPage(page)
}

// QueryByStatus lists every record in the given status.
func (c *Client) QueryByStatus(ctx context.Context, status domain.Status) ([]domain.JobPosting, error) {
	return c.Query(ctx, &gnt.DatabaseQueryFilter{
		Property: PropStatus,
		DatabaseQueryPropertyFilter: gnt.DatabaseQueryPropertyFilter{
			Status: &gnt.StatusDatabaseQueryFilter{Equals: string(status)},
		},
	}, nil)
}

// QueryApplied lists records with an applied date, most recent first.
func (c *Client) QueryApplied(ctx context.Context) ([]domain.JobPosting, error) {
	return c.Query(ctx,
		&gnt.DatabaseQueryFilter{
			Property: PropAppliedDate,
			DatabaseQueryPropertyFilter: gnt.DatabaseQueryPropertyFilter{
				Date: &gnt.DatePropertyFilter{IsNotEmpty: true},
			},
		},
		[]gnt.DatabaseQuerySort{{
			Property:  PropAppliedDate,
			Direction: gnt.SortDirDesc,
		}},
	)
}

// QueryCreatedWithin lists records created in the given window.
func (c *Client) QueryCreatedWithin(ctx context.Context, rng domain.StatsRange) ([]domain.JobPosting, error) {
	window := &gnt.DatePropertyFilter{}
	switch rng.Normalize() {
	case domain.RangePastWeek:
		window.PastWeek = &struct{}{}
	case domain.RangePastMonth:
		window.PastMonth = &struct{}{}
	default:
		window.PastYear = &struct{}{}
	}
	return c.Query(ctx, &gnt.DatabaseQueryFilter{
		Property: PropCreatedDate,
		DatabaseQueryPropertyFilter: gnt.DatabaseQueryPropertyFilter{
			Date: window,
		},
	}, nil)
}

// Query runs a filtered, sorted query and follows pagination to the end.
func (c *Client) Query(ctx context.Context, filter *gnt.DatabaseQueryFilter, sorts []gnt.DatabaseQuerySort) ([]domain.JobPosting, error) {
	s, err := c.session(ctx)
	if err != nil {
		return nil, storeError(opLookup, err)
	}

	q := &gnt.DatabaseQuery{Filter: filter, Sorts: sorts}
	var out []domain.JobPosting
	for {
		resp, err := s.api.QueryDatabase(ctx, s.databaseID, q)
		if err != nil {
			return nil, storeError(opLookup, err)
		}
		for _, page := range resp.Results {
			jp, err := mapPage(page)
			if err != nil {
				return nil, err
			}
			out = append(out, jp)
		}
		if !resp.HasMore || resp.NextCursor == nil {
			break
		}
		q.StartCursor = *resp.NextCursor
	}
	return out, nil
}

// PatchStatus moves a record to status. Moving to Applied also stamps the
// current time as the applied date.
func (c *Client) PatchStatus(ctx context.Context, id string, status domain.Status) error {
	s, err := c.session(ctx)
	if err != nil {
		return storeError(opUpdate, err)
	}

	props := gnt.DatabasePageProperties{
		PropStatus: gnt.DatabasePageProperty{
			Status: &gnt.SelectOptions{Name: string(status)},
		},
	}
	if status == domain.StatusApplied {
		props[PropAppliedDate] = gnt.DatabasePageProperty{
			Date: &gnt.Date{
				Start: gnt.NewDateTime(c.now(), true),
			},
		}
	}

	_, err = s.api.UpdatePage(ctx, id, gnt.UpdatePageParams{
		DatabasePageProperties: props,
	})
	return storeError(opUpdate, err)
}
