package tokens

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// CredentialsProvider produces (client, user) credential pairs on demand. It
// MUST be safe to call concurrently without external synchronisation, since
// the manager loop goroutine is the only caller but may be one of several
// managers sharing a provider instance.
type CredentialsProvider interface {
	GetClientCredentials(ctx context.Context) (Credentials, error)
	GetUserCredentials(ctx context.Context) (Credentials, error)
}

// GetCredentialsPair calls both provider methods and fails fast on the first
// error, preserving its cause.
func GetCredentialsPair(ctx context.Context, p CredentialsProvider) (CredentialsPair, error) {
	client, err := p.GetClientCredentials(ctx)
	if err != nil {
		return CredentialsPair{}, fmt.Errorf("client credentials: %w", err)
	}
	user, err := p.GetUserCredentials(ctx)
	if err != nil {
		return CredentialsPair{}, fmt.Errorf("user credentials: %w", err)
	}
	return CredentialsPair{Client: client, User: user}, nil
}

// StaticCredentialsProvider returns a fixed pair supplied at construction.
type StaticCredentialsProvider struct {
	Client Credentials
	User   Credentials
}

func (p StaticCredentialsProvider) GetClientCredentials(context.Context) (Credentials, error) {
	return p.Client, nil
}

func (p StaticCredentialsProvider) GetUserCredentials(context.Context) (Credentials, error) {
	return p.User, nil
}

type clientCredentialsFile struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

type userCredentialsFile struct {
	Username string `json:"application_username"`
	Password string `json:"application_password"`
}

// FileCredentialsProvider re-reads its two credential files on every call, so
// rotation is picked up without a process restart (spec.md §4.1). It
// additionally watches the containing directory with fsnotify purely to log
// rotation events; the watcher never caches a value across calls.
type FileCredentialsProvider struct {
	clientPath string
	userPath   string
	logger     *zap.Logger

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewFileCredentialsProvider wires up file-backed credentials from a
// directory plus the two file names, following the
// RUSTY_TOKENS_CREDENTIALS_DIR / *_FILE_NAME environment surface (spec.md §6).
func NewFileCredentialsProvider(dir, clientFileName, userFileName string, logger *zap.Logger) (*FileCredentialsProvider, error) {
	p := &FileCredentialsProvider{
		clientPath: filepath.Join(dir, clientFileName),
		userPath:   filepath.Join(dir, userFileName),
		logger:     logger,
		done:       make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		// A broken filesystem watcher must not block credential reads; log and
		// continue without rotation visibility.
		logger.Warn("credentials rotation watcher unavailable", zap.Error(err))
		return p, nil
	}
	if err := watcher.Add(dir); err != nil {
		logger.Warn("credentials rotation watcher could not watch directory", zap.String("dir", dir), zap.Error(err))
		watcher.Close()
		return p, nil
	}
	p.watcher = watcher
	go p.watchLoop()
	return p, nil
}

func (p *FileCredentialsProvider) watchLoop() {
	for {
		select {
		case ev, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if ev.Name == p.clientPath || ev.Name == p.userPath {
				p.logger.Info("credentials file changed on disk", zap.String("path", ev.Name), zap.String("op", ev.Op.String()))
			}
		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			p.logger.Warn("credentials watcher error", zap.Error(err))
		case <-p.done:
			return
		}
	}
}

// Close stops the rotation watcher, if any.
func (p *FileCredentialsProvider) Close() error {
	close(p.done)
	if p.watcher != nil {
		return p.watcher.Close()
	}
	return nil
}

func (p *FileCredentialsProvider) GetClientCredentials(context.Context) (Credentials, error) {
	var f clientCredentialsFile
	if err := readJSONFile(p.clientPath, &f); err != nil {
		return Credentials{}, err
	}
	c := Credentials{ID: f.ClientID, Secret: f.ClientSecret}
	if err := c.Validate(); err != nil {
		return Credentials{}, err
	}
	return c, nil
}

func (p *FileCredentialsProvider) GetUserCredentials(context.Context) (Credentials, error) {
	var f userCredentialsFile
	if err := readJSONFile(p.userPath, &f); err != nil {
		return Credentials{}, err
	}
	c := Credentials{ID: f.Username, Secret: f.Password}
	if err := c.Validate(); err != nil {
		return Credentials{}, err
	}
	return c, nil
}

func readJSONFile(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &CredentialsError{Kind: CredentialsIOError, Msg: path, Err: err}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &CredentialsError{Kind: CredentialsDecodingError, Msg: path, Err: err}
	}
	return nil
}
