package activityreport

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-office/internal/shared"
)

func TestRequestValidate(t *testing.T) {
	base := unitRequest()
	cases := []struct {
		name  string
		mut   func(*Request)
		want  error
		field string
	}{
		{name: "valid unit", mut: func(*Request) {}},
		{name: "valid section", mut: func(r *Request) { r.Grouping, r.UnitID, r.SectionID = GroupBySection, 0, 7 }},
		{name: "same day", mut: func(r *Request) { r.EndDate = r.StartDate }},
		{name: "reversed", mut: func(r *Request) { r.EndDate = r.StartDate.AddDate(0, 0, -1) }, want: ErrInvalidReportRange, field: "end_date"},
		{name: "reversed beats missing unit", mut: func(r *Request) { r.UnitID = 0; r.EndDate = r.StartDate.AddDate(0, 0, -1) }, want: ErrInvalidReportRange},
		{name: "reversed beats bad grouping", mut: func(r *Request) { r.Grouping = "department"; r.EndDate = r.StartDate.AddDate(0, 0, -1) }, want: ErrInvalidReportRange},
		{name: "unit missing", mut: func(r *Request) { r.UnitID = 0; r.SectionID = 7 }, want: ErrMissingScopeSelection, field: "unit"},
		{name: "section missing", mut: func(r *Request) { r.Grouping = GroupBySection }, want: ErrMissingScopeSelection, field: "section"},
		{name: "grouping unknown", mut: func(r *Request) { r.Grouping = "department" }, want: ErrInvalidReportRequest, field: "grouping"},
		{name: "financial year missing", mut: func(r *Request) { r.FinancialYearID = 0 }, want: ErrInvalidReportRequest, field: "financial_year"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := base
			tc.mut(&req)
			err := req.Validate()
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.want)
			if tc.field != "" {
				var v *shared.Violation
				require.ErrorAs(t, err, &v)
				assert.Equal(t, tc.field, v.Field)
			}
		})
	}
}

func TestMissingScopeMessages(t *testing.T) {
	req := unitRequest()
	req.UnitID = 0
	assert.EqualError(t, req.Validate(), "Please select a unit when grouping by unit")

	req.Grouping = GroupBySection
	assert.EqualError(t, req.Validate(), "Please select a section when grouping by section")

	req = unitRequest()
	req.EndDate = req.StartDate.AddDate(0, 0, -3)
	assert.EqualError(t, req.Validate(), "End date cannot be earlier than start date")
}

func TestParseRequest(t *testing.T) {
	values := url.Values{
		"grouping":       {"section"},
		"section":        {"7"},
		"unit":           {""},
		"financial_year": {"1"},
		"start_date":     {"2024-08-01"},
		"end_date":       {" 2024-08-31 "},
	}
	req, err := ParseRequest(values)
	require.NoError(t, err)
	assert.Equal(t, GroupBySection, req.Grouping)
	assert.Equal(t, int64(7), req.SectionID)
	assert.Equal(t, int64(0), req.UnitID)
	assert.Equal(t, int64(7), req.ScopeID())
	assert.Equal(t, time.Date(2024, 8, 31, 0, 0, 0, 0, time.UTC), req.EndDate)
	assert.NoError(t, req.Validate())

	values.Set("start_date", "01/08/2024")
	_, err = ParseRequest(values)
	assert.ErrorIs(t, err, ErrInvalidReportRequest)
}

func TestWindowIncludesWholeEndDay(t *testing.T) {
	req := unitRequest()
	req.EndDate = time.Date(2024, 8, 31, 15, 30, 0, 0, time.UTC)
	from, to := req.Window()
	assert.Equal(t, time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC), to)
}

func TestCacheKeyDistinguishesRequests(t *testing.T) {
	a := unitRequest()
	b := unitRequest()
	b.EndDate = b.EndDate.AddDate(0, 0, -1)
	c := unitRequest()
	c.Grouping, c.SectionID = GroupBySection, 5
	assert.NotEqual(t, a.CacheKey(), b.CacheKey())
	assert.NotEqual(t, a.CacheKey(), c.CacheKey())
	assert.Equal(t, "activityreport:unit:5:1:2024-08-01:2024-08-31", a.CacheKey())
}
