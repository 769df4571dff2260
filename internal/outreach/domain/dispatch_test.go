package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReportCounts(t *testing.T) {
	r := DispatchReport{Results: []Result{
		{ID: 1, Status: StatusSent},
		{ID: 2, Status: StatusAlreadySent},
		{ID: 3, Status: StatusSent},
		{ID: 4, Status: StatusError, Error: "Not found"},
	}}

	c := r.Counts()
	assert.Equal(t, 2, c[StatusSent])
	assert.Equal(t, 1, c[StatusAlreadySent])
	assert.Equal(t, 1, c[StatusError])
}
