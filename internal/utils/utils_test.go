package utils

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTime(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"2024-05-01T10:20:30Z", time.Date(2024, 5, 1, 10, 20, 30, 0, time.UTC)},
		{"2024-05-01T10:20:30.5", time.Date(2024, 5, 1, 10, 20, 30, 5e8, time.Local)},
		{"2024-05-01 10:20:30", time.Date(2024, 5, 1, 10, 20, 30, 0, time.Local)},
		{"1714558830", time.Unix(1714558830, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTime(tt.input)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}

	_, err := ParseTime("yesterday")
	assert.Error(t, err)
}

func TestSplitHostPort(t *testing.T) {
	host, port, err := SplitHostPort(" 10.0.0.5:5001 ")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", host)
	assert.Equal(t, 5001, port)

	for _, bad := range []string{"10.0.0.5", ":5001", "host:0", "host:70000", "host:http"} {
		_, _, err := SplitHostPort(bad)
		assert.Error(t, err, bad)
	}

	assert.Equal(t, "[::1]:5001", JoinHostPort("::1", 5001))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a:1", "b:2"}, SplitList(" a:1 ,, b:2 ,"))
	assert.Nil(t, SplitList(" , "))
}

func TestAppendUnique(t *testing.T) {
	got := AppendUnique([]string{"a", "b"}, "b", "c", "a", "c", "d")
	assert.Equal(t, []string{"a", "b", "c", "d"}, got)
}

func TestSubnetHosts(t *testing.T) {
	hosts, err := SubnetHosts(netip.MustParseAddr("192.168.1.77"), 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"192.168.1.1", "192.168.1.2", "192.168.1.3"}, hosts)

	all, err := SubnetHosts(netip.MustParseAddr("10.1.2.3"), 1000)
	require.NoError(t, err)
	assert.Len(t, all, 254)
	assert.Equal(t, "10.1.2.254", all[len(all)-1])

	_, err = SubnetHosts(netip.MustParseAddr("::1"), 3)
	assert.Error(t, err)
}
