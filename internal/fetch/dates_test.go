package fetch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseDateSpec_SingleDay(t *testing.T) {
	d, err := ParseDateSpec("05_04_2025")
	require.NoError(t, err)
	require.False(t, d.IsRange())
	require.Equal(t, []string{"05_04_2025"}, d.Days())
	require.Equal(t, []string{"05_04_2025"}, d.MonthPrefixes())
	require.Equal(t, "05_04_2025", d.Label())
	require.True(t, d.Contains("anything"))
}

func TestParseDateSpec_Month(t *testing.T) {
	d, err := ParseDateSpec("*04_2025")
	require.NoError(t, err)
	require.False(t, d.IsRange())
	require.Equal(t, []string{"*04_2025"}, d.Days())
	require.Equal(t, "04_2025", d.Label())
}

func TestParseDateSpec_Range(t *testing.T) {
	d, err := ParseDateSpec("28_03_2025 -> 02_04_2025")
	require.NoError(t, err)
	require.True(t, d.IsRange())
	require.Equal(t, []string{
		"28_03_2025", "29_03_2025", "30_03_2025", "31_03_2025", "01_04_2025", "02_04_2025",
	}, d.Days())
	require.Equal(t, []string{"*03_2025", "*04_2025"}, d.MonthPrefixes())
	require.Equal(t, "28_03_2025-02_04_2025", d.Label())

	require.True(t, d.Contains("30-03-2025"))
	require.True(t, d.Contains("02-04-2025"))
	require.False(t, d.Contains("03-04-2025"))
	require.False(t, d.Contains("not a date"))
}

func TestParseDateSpec_Invalid(t *testing.T) {
	for _, s := range []string{"", "2025-04-05", "32_01_2025", "*13_2025", "05_04_2025 ->", "10_04_2025 -> 01_04_2025"} {
		_, err := ParseDateSpec(s)
		require.Error(t, err, "spec %q", s)
	}
}

func TestYesterday(t *testing.T) {
	now := time.Date(2025, 4, 1, 9, 30, 0, 0, time.UTC)
	require.Equal(t, "31_03_2025", Yesterday(now).Raw())
}
