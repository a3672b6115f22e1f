package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/buntdb"
)

// This test performs a simple scenario. It starts the server and makes an HTTP
// request. The process should not return any error.
func TestScenario(t *testing.T) {
	db, err := buntdb.Open(":memory:")
	require.NoError(t, err)

	err = db.CreateIndex(TimestampIndex, "*", buntdb.IndexJSON(TimestampIndex))
	require.NoError(t, err)

	imagesFolder := t.TempDir()

	err = os.WriteFile(filepath.Join(imagesFolder, "aa.jpg"), []byte("fake image"), 0644)
	require.NoError(t, err)

	logger := zerolog.New(io.Discard)

	httpapi := NewNativeHTTP("localhost:0", db, imagesFolder, logger)

	wait := sync.WaitGroup{}
	wait.Add(1)
	go func() {
		defer wait.Done()
		err := httpapi.Start()
		require.NoError(t, err)
	}()

	defer func() {
		t.Log("stopping")
		httpapi.Stop()
		wait.Wait()
		t.Log("stopped")
	}()

	time.Sleep(time.Second * 1)

	addr := httpapi.GetAddr()
	require.NotNil(t, addr)

	url := "http://" + addr.String() + "/api/medias"
	t.Logf("fetching url %s", url)

	resp, err := http.Get(url)
	require.NoError(t, err)

	require.Equal(t, 200, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	resp, err = http.Get("http://" + addr.String() + "/images/aa.jpg")
	require.NoError(t, err)

	defer resp.Body.Close()

	require.Equal(t, 200, resp.StatusCode)

	img, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "fake image", string(img))
}

func TestWrongAddr(t *testing.T) {
	a := HTTPAPI{
		server: &http.Server{Addr: "x"},
	}

	err := a.Start()
	require.EqualError(t, err, "failed to create conn 'x': listen tcp: address x: missing port in address")
}

// If the listener is nil, the server should return a nil address.
func TestGetAddr(t *testing.T) {
	a := HTTPAPI{}

	addr := a.GetAddr()
	require.Nil(t, addr)
}

func TestGetMedias(t *testing.T) {
	db, err := buntdb.Open(":memory:")
	require.NoError(t, err)

	err = db.CreateIndex(TimestampIndex, "*", buntdb.IndexJSON(TimestampIndex))
	require.NoError(t, err)

	n := 20
	medias := make([]media, n)

	// inserted in random order, expected newest first
	for _, j := range rand.Perm(n) {
		medias[n-1-j] = storeMedia(t, db, j)
	}

	handler := getMedias(db)

	t.Run("Get Medias without count", getTestWithtoutCount(medias, handler))
	t.Run("Get Medias with count", getTestWithCount(medias, handler))
	t.Run("Get Medias with wrong count", getTestWithWrongCount(handler))
	t.Run("Get Medias with over maximum count", getTestWithOverMaximumCount(medias, handler))
}

func TestGetMedia(t *testing.T) {
	db, err := buntdb.Open(":memory:")
	require.NoError(t, err)

	expected := storeMedia(t, db, 3)

	handler := getMedia(db)

	rr := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodGet, "http://example.com/api/medias/"+expected.ID, nil)
	require.NoError(t, err)

	handler(rr, req)
	require.Equal(t, 200, rr.Result().StatusCode)
	require.Equal(t, "application/json", rr.Result().Header.Get("Content-Type"))

	var result media

	err = json.Unmarshal(rr.Body.Bytes(), &result)
	require.NoError(t, err)
	require.Equal(t, expected, result)

	rr = httptest.NewRecorder()
	req, err = http.NewRequest(http.MethodGet, "http://example.com/api/medias/unknown", nil)
	require.NoError(t, err)

	handler(rr, req)
	require.Equal(t, http.StatusNotFound, rr.Result().StatusCode)

	rr = httptest.NewRecorder()
	req, err = http.NewRequest(http.MethodGet, "http://example.com/api/medias/", nil)
	require.NoError(t, err)

	handler(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Result().StatusCode)
}

func getTestWithtoutCount(medias []media,
	handler func(http.ResponseWriter, *http.Request)) func(t *testing.T) {

	return func(t *testing.T) {
		t.Parallel()

		rr := httptest.NewRecorder()
		req, err := http.NewRequest(http.MethodGet, "", nil)
		require.NoError(t, err)

		handler(rr, req)
		require.Equal(t, 200, rr.Result().StatusCode)

		result := []media{}

		err = json.Unmarshal(rr.Body.Bytes(), &result)
		require.NoError(t, err)

		// there should be the maximum of 12 medias
		require.Len(t, result, 12)

		require.Equal(t, medias[:12], result)
	}
}

func getTestWithCount(medias []media,
	handler func(http.ResponseWriter, *http.Request)) func(t *testing.T) {

	return func(t *testing.T) {
		t.Parallel()

		rr := httptest.NewRecorder()
		req, err := http.NewRequest(http.MethodGet, "http://example.com?count=5", nil)
		require.NoError(t, err)

		handler(rr, req)
		require.Equal(t, 200, rr.Result().StatusCode)

		result := []media{}

		err = json.Unmarshal(rr.Body.Bytes(), &result)
		require.NoError(t, err)

		// there should be the count of 5
		require.Len(t, result, 5)

		require.Equal(t, medias[:5], result)
	}
}

func getTestWithWrongCount(handler func(http.ResponseWriter, *http.Request)) func(t *testing.T) {
	return func(t *testing.T) {
		t.Parallel()

		rr := httptest.NewRecorder()
		req, err := http.NewRequest(http.MethodGet, "http://example.com?count=-1", nil)
		require.NoError(t, err)

		handler(rr, req)
		require.Equal(t, http.StatusBadRequest, rr.Result().StatusCode)
	}
}

func getTestWithOverMaximumCount(medias []media,
	handler func(http.ResponseWriter, *http.Request)) func(t *testing.T) {

	return func(t *testing.T) {
		t.Parallel()

		rr := httptest.NewRecorder()
		req, err := http.NewRequest(http.MethodGet, "http://example.com?count=50", nil)
		require.NoError(t, err)

		handler(rr, req)
		require.Equal(t, 200, rr.Result().StatusCode)

		result := []media{}

		err = json.Unmarshal(rr.Body.Bytes(), &result)
		require.NoError(t, err)

		// there should be the maximum of 12
		require.Len(t, result, 12)

		require.Equal(t, medias[:12], result)
	}
}

// -----------------------------------------------------------------------------
// Utility functions

// media holds the archived fields the tests look at.
type media struct {
	ID      string `json:"id"`
	TakenAt int64  `json:"taken_at"`
	Link    string `json:"link"`
}

// storeMedia archives a media taken at 1000+i.
func storeMedia(t *testing.T, db *buntdb.DB, i int) media {
	m := media{
		ID:      fmt.Sprintf("%d_42", i),
		TakenAt: int64(1000 + i),
		Link:    fmt.Sprintf("https://www.instagram.com/p/code%d/", i),
	}

	buf, err := json.Marshal(&m)
	require.NoError(t, err)

	err = db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(m.ID, string(buf), nil)
		return err
	})
	require.NoError(t, err)

	return m
}
