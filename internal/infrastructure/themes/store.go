package themes

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/nobelvoices/laureate-rag/internal/core/domain"
	"github.com/nobelvoices/laureate-rag/internal/core/ports"
)

const metaDimensionKey = "__dimension"

// Store persists pre-computed keyword vectors in bbolt, one bucket per
// embedding model. Vectors embedded under one model must never be compared
// against another model's query vectors, so the bucket records its dimension
// and every write is checked against it.
type Store struct {
	db    *bbolt.DB
	model string
	want  int

	mu  sync.RWMutex
	dim int
}

// NewStore opens the store for one embedding model. A non-zero wantDim is
// the configured expectation for that model's output dimension; a store
// whose persisted vectors disagree with it is model/index skew and fails
// here rather than at query time.
func NewStore(path, model string, wantDim int) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open theme store %s: %w", path, err)
	}

	s := &Store{db: db, model: model, want: wantDim}
	err = db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(model))
		if err != nil {
			return err
		}
		if raw := bucket.Get([]byte(metaDimensionKey)); len(raw) == 8 {
			s.dim = int(binary.LittleEndian.Uint64(raw))
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init theme store bucket: %w", err)
	}
	if s.want > 0 && s.dim > 0 && s.dim != s.want {
		db.Close()
		return nil, domain.WrapErrorf(domain.ErrDimensionMismatch, "open theme store",
			"model %s configured for dimension %d, store holds %d", model, s.want, s.dim)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dim
}

// KeywordVectors returns every stored keyword vector for the active model.
func (s *Store) KeywordVectors(_ context.Context) (map[string][]float32, error) {
	out := make(map[string][]float32)
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(s.model))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(key, value []byte) error {
			if string(key) == metaDimensionKey {
				return nil
			}
			out[string(key)] = decodeVector(value)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load keyword vectors: %w", err)
	}
	return out, nil
}

// Sync embeds any lexicon keywords missing from the store and persists
// them. The first vector written fixes the model's dimension; later writes
// with a different length fail rather than poison similarity scores.
func (s *Store) Sync(ctx context.Context, embedder ports.Embedder, keywords []string) error {
	existing, err := s.KeywordVectors(ctx)
	if err != nil {
		return err
	}

	missing := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		if _, ok := existing[keyword]; !ok {
			missing = append(missing, keyword)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	vectors, err := embedder.Embed(ctx, missing)
	if err != nil {
		return domain.WrapError(domain.ErrEmbeddingFailure, "embed theme keywords", err)
	}
	if len(vectors) != len(missing) {
		return domain.WrapErrorf(domain.ErrEmbeddingFailure, "embed theme keywords",
			"vectors/keywords mismatch: %d/%d", len(vectors), len(missing))
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(s.model))
		if bucket == nil {
			return fmt.Errorf("bucket %q missing", s.model)
		}
		for i, keyword := range missing {
			vector := vectors[i]
			if err := s.checkDimension(bucket, len(vector)); err != nil {
				return err
			}
			if err := bucket.Put([]byte(keyword), encodeVector(vector)); err != nil {
				return fmt.Errorf("store vector for %q: %w", keyword, err)
			}
		}
		return nil
	})
}

func (s *Store) checkDimension(bucket *bbolt.Bucket, got int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dim == 0 {
		if s.want > 0 && got != s.want {
			return domain.WrapErrorf(domain.ErrDimensionMismatch, "store theme vector",
				"model %s configured for dimension %d, embedder produced %d", s.model, s.want, got)
		}
		s.dim = got
		raw := make([]byte, 8)
		binary.LittleEndian.PutUint64(raw, uint64(got))
		return bucket.Put([]byte(metaDimensionKey), raw)
	}
	if got != s.dim {
		return domain.WrapErrorf(domain.ErrDimensionMismatch, "store theme vector",
			"model %s expects dimension %d, got %d", s.model, s.dim, got)
	}
	return nil
}

func encodeVector(vector []float32) []byte {
	raw := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}
	return raw
}

func decodeVector(raw []byte) []float32 {
	vector := make([]float32, len(raw)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return vector
}
