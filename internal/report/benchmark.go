// Package report turns derived study figures into analyses and advice
// measured against an exam benchmark.
package report

import (
	"fmt"
	"sort"

	"github.com/verte-zerg/studylog/internal/stats"
)

// Benchmark is the set of targets for one exam profile.
type Benchmark struct {
	Name             string
	TargetTotalHours float64
	DailyHours       float64
	PassingScore     float64
	SubjectMinScore  float64
	MinStudyDays     int
	SubjectHours     map[string]float64
}

// TargetFor returns the recommended hours for subject.
func (b Benchmark) TargetFor(subject string) float64 {
	if h := b.SubjectHours[subject]; h > 0 {
		return h
	}
	return stats.DefaultTargetHours
}

// Subjects returns the subjects with a recommended hour target, sorted.
func (b Benchmark) Subjects() []string {
	out := make([]string, 0, len(b.SubjectHours))
	for name := range b.SubjectHours {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// DefaultBenchmarks returns the built-in first and second round profiles.
func DefaultBenchmarks() map[string]Benchmark {
	return map[string]Benchmark{
		"first": {
			Name:             "first",
			TargetTotalHours: 1200,
			DailyHours:       5,
			PassingScore:     60,
			SubjectMinScore:  40,
			MinStudyDays:     200,
			SubjectHours: map[string]float64{
				"헌법":     120,
				"민법":     180,
				"상법":     100,
				"민사집행법":  80,
				"부동산등기법": 100,
				"상업등기법":  80,
				"공탁법":    80,
			},
		},
		"second": {
			Name:             "second",
			TargetTotalHours: 600,
			DailyHours:       4,
			PassingScore:     70,
			SubjectMinScore:  50,
			MinStudyDays:     150,
			SubjectHours: map[string]float64{
				"민법 (2차)":       150,
				"형법 (2차)":       100,
				"형사소송법 (2차)":    80,
				"민사소송법 (2차)":    100,
				"민사사건서류작성 (2차)": 50,
				"부동산등기법 (2차)":   80,
				"등기신청서류작성 (2차)": 40,
			},
		},
	}
}

// Lookup returns the named benchmark.
func Lookup(benchmarks map[string]Benchmark, name string) (Benchmark, error) {
	b, ok := benchmarks[name]
	if !ok {
		names := make([]string, 0, len(benchmarks))
		for n := range benchmarks {
			names = append(names, n)
		}
		sort.Strings(names)
		return Benchmark{}, fmt.Errorf("unknown exam profile %q (known: %v)", name, names)
	}
	if b.Name == "" {
		b.Name = name
	}
	return b, nil
}
