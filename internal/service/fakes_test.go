package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/sakif/wedding-rsvp/internal/apperror"
	"github.com/sakif/wedding-rsvp/internal/model"
	"github.com/sakif/wedding-rsvp/internal/sheets"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeStore is an in-memory repository.ConfigRepository.
type fakeStore struct {
	mu     sync.Mutex
	values map[string]string
	puts   int

	// set to a non-nil error to simulate a database failure
	getErr error
	putErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: make(map[string]string)}
}

func (f *fakeStore) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return "", f.getErr
	}
	v, ok := f.values[key]
	if !ok {
		return "", apperror.NotFound("config", key)
	}
	return v, nil
}

func (f *fakeStore) Put(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.values[key] = value
	f.puts++
	return nil
}

func (f *fakeStore) value(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	return v, ok
}

// storeToken puts a serialized token under google_tokens, as a previous
// successful authorization would have.
func (f *fakeStore) storeToken(t *testing.T, tok *oauth2.Token) {
	t.Helper()
	raw, err := json.Marshal(tok)
	if err != nil {
		t.Fatalf("marshal token: %v", err)
	}
	f.values[model.ConfigKeyGoogleTokens] = string(raw)
}

// fakeProvider implements OAuthProvider without talking to Google.
type fakeProvider struct {
	tokens      map[string]*oauth2.Token // code → token
	exchangeErr error
	refreshed   *oauth2.Token // returned by TokenSource
	exchanges   int

	// blockExchange makes Exchange wait for ctx to end.
	blockExchange bool
}

func (f *fakeProvider) AuthURL(state string) string {
	return "https://accounts.example/o/oauth2/auth?access_type=offline&prompt=consent&state=" + state
}

func (f *fakeProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	f.exchanges++
	if f.blockExchange {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	tok, ok := f.tokens[code]
	if !ok {
		return nil, errors.New(`oauth2: "invalid_grant" "Bad Request"`)
	}
	return tok, nil
}

func (f *fakeProvider) TokenSource(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource {
	if f.refreshed != nil {
		return oauth2.StaticTokenSource(f.refreshed)
	}
	return oauth2.StaticTokenSource(tok)
}

// fakeSheets is an in-memory sheets.Client.
type fakeSheets struct {
	mu      sync.Mutex
	creates []string   // titles
	appends []appended // in call order
	nextID  int

	createErr error
	appendErr error

	// createBarrier, when set, makes CreateSpreadsheet wait until that
	// many callers are inside it.
	createBarrier int
	arrived       int
	release       chan struct{}

	// blockAppend makes AppendRow wait for ctx to end.
	blockAppend bool
}

type appended struct {
	spreadsheetID string
	row           []any
}

var _ sheets.Client = (*fakeSheets)(nil)

func (f *fakeSheets) CreateSpreadsheet(ctx context.Context, title string) (string, error) {
	f.mu.Lock()
	if f.createErr != nil {
		f.mu.Unlock()
		return "", f.createErr
	}
	f.creates = append(f.creates, title)
	f.nextID++
	id := fmt.Sprintf("sheet-%d", f.nextID)

	var wait chan struct{}
	if f.createBarrier > 0 {
		if f.release == nil {
			f.release = make(chan struct{})
		}
		f.arrived++
		if f.arrived == f.createBarrier {
			close(f.release)
		}
		wait = f.release
	}
	f.mu.Unlock()

	if wait != nil {
		select {
		case <-wait:
		case <-time.After(2 * time.Second):
		}
	}
	return id, nil
}

func (f *fakeSheets) AppendRow(ctx context.Context, spreadsheetID string, row []any) error {
	if f.blockAppend {
		<-ctx.Done()
		return ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appends = append(f.appends, appended{spreadsheetID: spreadsheetID, row: row})
	return nil
}

func (f *fakeSheets) createCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.creates)
}

func (f *fakeSheets) appendsCopy() []appended {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]appended(nil), f.appends...)
}

// factoryFor returns a sheets.Factory that always hands out client.
func factoryFor(client sheets.Client) sheets.Factory {
	return func(ctx context.Context, _ *http.Client) (sheets.Client, error) {
		return client, nil
	}
}

// recorder is a metrics.Recorder that counts calls by label.
type recorder struct {
	mu           sync.Mutex
	submissions  map[string]int
	provisioning map[string]int
	exchanges    map[string]int
	remote       map[string]int
}

func newRecorder() *recorder {
	return &recorder{
		submissions:  map[string]int{},
		provisioning: map[string]int{},
		exchanges:    map[string]int{},
		remote:       map[string]int{},
	}
}

func (r *recorder) RecordSubmission(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submissions[result]++
}

func (r *recorder) RecordProvisioning(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.provisioning[outcome]++
}

func (r *recorder) RecordAuthExchange(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exchanges[result]++
}

func (r *recorder) RecordRemoteCall(op string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remote[op]++
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func validToken(access string) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  access,
		RefreshToken: "refresh-1",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour),
	}
}
