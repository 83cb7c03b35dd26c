package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaperRecordKey(t *testing.T) {
	a := PaperRecord{CourseCode: "CS101", Year: 2023, Title: "Semester 1"}
	b := PaperRecord{CourseCode: "cs101", Year: 2023, Title: "Semester 1"}
	c := PaperRecord{CourseCode: "CS101", Year: 2024, Title: "Semester 1"}

	assert.Equal(t, a.Key(), b.Key(), "keys are case-insensitive on course code")
	assert.NotEqual(t, a.Key(), c.Key())
}

func TestPaperRecordKeyIgnoresLocalPath(t *testing.T) {
	a := PaperRecord{CourseCode: "CS101", Year: 2023, Title: "Semester 1"}
	b := a
	b.LocalPath = "/papers/CS101/cs101-2023-semester-1.pdf"

	assert.Equal(t, a.Key(), b.Key())
}

func TestScrapeJobSelects(t *testing.T) {
	rec := PaperRecord{CourseCode: "CS101", Year: 2023, Title: "Semester 1"}
	other := PaperRecord{CourseCode: "CS101", Year: 2022, Title: "Semester 1"}

	t.Run("empty selection means all", func(t *testing.T) {
		job := ScrapeJob{CourseCodes: []string{"CS101"}}
		assert.True(t, job.Selects(rec))
		assert.True(t, job.Selects(other))
	})

	t.Run("explicit selection filters", func(t *testing.T) {
		job := ScrapeJob{
			CourseCodes:  []string{"CS101"},
			SelectedKeys: []string{rec.Key()},
		}
		assert.True(t, job.Selects(rec))
		assert.False(t, job.Selects(other))
	})
}

func TestSummaryTotal(t *testing.T) {
	s := Summary{
		Downloaded: []PaperRecord{{CourseCode: "CS101"}},
		Failed:     []FailedItem{{Reason: "timeout"}, {Reason: "mismatch"}},
	}
	assert.Equal(t, 3, s.Total())
}
