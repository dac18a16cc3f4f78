package result

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storedSuccess(bssid, essid, password string) *CrackResult {
	r := Success(password, make([]byte, 32), "captured")
	r.BSSID = bssid
	r.ESSID = essid
	r.Tested = 42
	return r
}

func TestStoreAddAndLookup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	s := NewStore(path)

	s.Add(storedSuccess("aa:bb:cc:dd:ee:ff", "HomeNet", "sunflower2024"))
	s.Add(storedSuccess("11:22:33:44:55:66", "CoffeeShop", "espresso99!"))
	assert.Equal(t, 2, s.Count())

	found := s.FindByBSSID("aa:bb:cc:dd:ee:ff")
	require.NotNil(t, found)
	assert.Equal(t, "HomeNet", found.ESSID)
	assert.Nil(t, s.FindByBSSID("00:00:00:00:00:00"))
}

func TestStoreDeduplicatesByBSSID(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "results.json"))

	s.Add(storedSuccess("aa:bb:cc:dd:ee:ff", "HomeNet", "firstguess1"))
	s.Add(storedSuccess("aa:bb:cc:dd:ee:ff", "HomeNet", "secondguess2"))

	assert.Equal(t, 1, s.Count())
	assert.Equal(t, "secondguess2", s.FindByBSSID("aa:bb:cc:dd:ee:ff").Password)
}

func TestStoreReloadsFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")

	s := NewStore(path)
	s.Add(storedSuccess("aa:bb:cc:dd:ee:ff", "HomeNet", "sunflower2024"))
	nf := NotFound()
	nf.BSSID = "11:22:33:44:55:66"
	s.Add(nf)

	reloaded := NewStore(path)
	assert.Equal(t, 2, reloaded.Count())
	assert.Len(t, reloaded.Cracked(), 1)

	r := reloaded.FindByBSSID("aa:bb:cc:dd:ee:ff")
	require.NotNil(t, r)
	assert.Equal(t, StatusSuccess, r.Status)
	assert.Equal(t, "sunflower2024", r.Password)
	assert.Equal(t, 42, r.Tested)
}

func TestFormatCracked(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "results.json"))
	assert.Equal(t, "No cracked networks.\n", s.FormatCracked())

	s.Add(storedSuccess("aa:bb:cc:dd:ee:ff", "HomeNet", "sunflower2024"))
	out := s.FormatCracked()
	assert.Contains(t, out, "HomeNet")
	assert.Contains(t, out, "sunflower2024")
	assert.Contains(t, out, "captured")
}

func TestStatusRoundTrip(t *testing.T) {
	for _, st := range []Status{StatusSuccess, StatusNotFound, StatusCancelled, StatusError} {
		b, err := st.MarshalJSON()
		require.NoError(t, err)
		var back Status
		require.NoError(t, back.UnmarshalJSON(b))
		assert.Equal(t, st, back)
	}
}
