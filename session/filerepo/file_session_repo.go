package filerepo

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/swiftyco/go-intra-client/session"
)

const sessionFileName = "session.json"

var _ session.Repo = (*FileSessionRepo)(nil)

// FileSessionRepo stores the session as a single JSON file.
//
// Writes go to a temporary file in the same directory which is then renamed
// over the target, so a reader never observes a half-written session. The
// file is created with 0600 permissions and the folder with 0700 (owner
// only) since it holds live credentials.
type FileSessionRepo struct {
	path string
	lock sync.Mutex
}

// New creates a file-backed session repo rooted at dataFolder.
func New(dataFolder string) (*FileSessionRepo, error) {
	if err := os.MkdirAll(dataFolder, 0o700); err != nil {
		return nil, errors.Wrap(err, "[filerepo.New] creating data folder")
	}
	return &FileSessionRepo{path: filepath.Join(dataFolder, sessionFileName)}, nil
}

// Get reads the stored session. A missing file means no session. A file
// that cannot be parsed, or that holds an incomplete session, is removed
// and reported as absent.
func (r *FileSessionRepo) Get() (*session.Session, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[FileSessionRepo.Get] reading session file")
	}

	var sess session.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, r.removeLocked()
	}
	if !sess.Complete() {
		return nil, r.removeLocked()
	}
	return &sess, nil
}

func (r *FileSessionRepo) Put(sess *session.Session) error {
	if !sess.Complete() {
		return errors.New("[FileSessionRepo.Put] refusing to persist incomplete session")
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return errors.Wrap(err, "[FileSessionRepo.Put] marshalling session")
	}

	tmpPath := r.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return errors.Wrap(err, "[FileSessionRepo.Put] writing session file")
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrap(err, "[FileSessionRepo.Put] replacing session file")
	}
	return nil
}

func (r *FileSessionRepo) Clear() error {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.removeLocked()
}

func (r *FileSessionRepo) removeLocked() error {
	err := os.Remove(r.path)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[FileSessionRepo] removing session file")
	}
	return nil
}
