package core

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the persisted types. Timestamps are stored as Unix
// microseconds in UTC.
var (
	IDMUS              = idMUS{}
	KnowledgeSourceMUS = knowledgeSourceMUS{}
	ChunkMUS           = chunkMUS{}
	CheckpointMUS      = checkpointMUS{}
)

// ErrShortBuffer indicates serialized data ended before a value was complete.
var ErrShortBuffer = errors.New("serialized data too short")

const uuidSize = len(uuid.UUID{})

type idMUS struct{}

func (idMUS) Marshal(v ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (idMUS) Unmarshal(bs []byte) (ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ID(v), n, err
}

func (idMUS) Size(v ID) int {
	return varint.Uint64.Size(uint64(v))
}

type knowledgeSourceMUS struct{}

func (knowledgeSourceMUS) Marshal(v KnowledgeSource, bs []byte) (n int) {
	w := musWriter{bs: bs}
	w.id(v.Id)
	w.uuid(v.AgentID)
	w.int(int(v.Kind))
	w.str(v.Name)
	w.str(v.URL)
	w.str(v.FileName)
	w.str(v.Description)
	w.str(v.Content)
	w.int(v.WordCount)
	w.int(int(v.Status))
	w.int(v.ChunkCount)
	w.str(v.ProcessingError)
	w.time(v.InsertedAt)
	w.time(v.UpdatedAt)
	return w.n
}

func (knowledgeSourceMUS) Unmarshal(bs []byte) (v KnowledgeSource, n int, err error) {
	r := musReader{bs: bs}
	v.Id = r.id()
	v.AgentID = r.uuid()
	v.Kind = SourceKind(r.int())
	v.Name = r.str()
	v.URL = r.str()
	v.FileName = r.str()
	v.Description = r.str()
	v.Content = r.str()
	v.WordCount = r.int()
	v.Status = SourceStatus(r.int())
	v.ChunkCount = r.int()
	v.ProcessingError = r.str()
	v.InsertedAt = r.time()
	v.UpdatedAt = r.time()
	return v, r.n, r.err
}

func (knowledgeSourceMUS) Size(v KnowledgeSource) int {
	return IDMUS.Size(v.Id) +
		uuidSize +
		varint.Int.Size(int(v.Kind)) +
		ord.String.Size(v.Name) +
		ord.String.Size(v.URL) +
		ord.String.Size(v.FileName) +
		ord.String.Size(v.Description) +
		ord.String.Size(v.Content) +
		varint.Int.Size(v.WordCount) +
		varint.Int.Size(int(v.Status)) +
		varint.Int.Size(v.ChunkCount) +
		ord.String.Size(v.ProcessingError) +
		timeSize(v.InsertedAt) +
		timeSize(v.UpdatedAt)
}

type chunkMUS struct{}

func (chunkMUS) Marshal(v Chunk, bs []byte) int {
	w := musWriter{bs: bs}
	w.id(v.Id)
	w.id(v.SourceID)
	w.int(v.Index)
	w.str(v.Text)
	w.vector(v.Vector)
	w.time(v.InsertedAt)
	return w.n
}

func (chunkMUS) Unmarshal(bs []byte) (v Chunk, n int, err error) {
	r := musReader{bs: bs}
	v.Id = r.id()
	v.SourceID = r.id()
	v.Index = r.int()
	v.Text = r.str()
	v.Vector = r.vector()
	v.InsertedAt = r.time()
	return v, r.n, r.err
}

func (chunkMUS) Size(v Chunk) int {
	size := IDMUS.Size(v.Id) +
		IDMUS.Size(v.SourceID) +
		varint.Int.Size(v.Index) +
		ord.String.Size(v.Text) +
		varint.Int.Size(len(v.Vector)) +
		timeSize(v.InsertedAt)
	for _, f := range v.Vector {
		size += varint.Uint32.Size(math.Float32bits(f))
	}
	return size
}

type checkpointMUS struct{}

func (checkpointMUS) Marshal(v Checkpoint, bs []byte) int {
	w := musWriter{bs: bs}
	w.str(v.ProcessorType)
	w.id(v.LastID)
	w.time(v.UpdatedAt)
	return w.n
}

func (checkpointMUS) Unmarshal(bs []byte) (v Checkpoint, n int, err error) {
	r := musReader{bs: bs}
	v.ProcessorType = r.str()
	v.LastID = r.id()
	v.UpdatedAt = r.time()
	return v, r.n, r.err
}

func (checkpointMUS) Size(v Checkpoint) int {
	return ord.String.Size(v.ProcessorType) + IDMUS.Size(v.LastID) + timeSize(v.UpdatedAt)
}

func timeSize(t time.Time) int {
	return varint.Int64.Size(t.UnixMicro())
}

// musWriter appends fields to a buffer sized by the matching Size method.
type musWriter struct {
	bs []byte
	n  int
}

func (w *musWriter) id(v ID) { w.n += IDMUS.Marshal(v, w.bs[w.n:]) }
func (w *musWriter) int(v int) { w.n += varint.Int.Marshal(v, w.bs[w.n:]) }
func (w *musWriter) str(v string) { w.n += ord.String.Marshal(v, w.bs[w.n:]) }

func (w *musWriter) uuid(v uuid.UUID) {
	w.n += copy(w.bs[w.n:], v[:])
}

func (w *musWriter) time(t time.Time) {
	w.n += varint.Int64.Marshal(t.UnixMicro(), w.bs[w.n:])
}

func (w *musWriter) vector(v []float32) {
	w.int(len(v))
	for _, f := range v {
		w.n += varint.Uint32.Marshal(math.Float32bits(f), w.bs[w.n:])
	}
}

// musReader reads fields in order, stopping at the first error.
type musReader struct {
	bs  []byte
	n   int
	err error
}

func (r *musReader) id() ID {
	if r.err != nil {
		return 0
	}
	v, n, err := IDMUS.Unmarshal(r.bs[r.n:])
	r.n += n
	r.err = err
	return v
}

func (r *musReader) int() int {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Int.Unmarshal(r.bs[r.n:])
	r.n += n
	r.err = err
	return v
}

func (r *musReader) str() string {
	if r.err != nil {
		return ""
	}
	v, n, err := ord.String.Unmarshal(r.bs[r.n:])
	r.n += n
	r.err = err
	return v
}

func (r *musReader) uuid() uuid.UUID {
	var v uuid.UUID
	if r.err != nil {
		return v
	}
	if len(r.bs)-r.n < uuidSize {
		r.err = ErrShortBuffer
		return v
	}
	r.n += copy(v[:], r.bs[r.n:r.n+uuidSize])
	return v
}

func (r *musReader) time() time.Time {
	if r.err != nil {
		return time.Time{}
	}
	v, n, err := varint.Int64.Unmarshal(r.bs[r.n:])
	r.n += n
	r.err = err
	return time.UnixMicro(v).UTC()
}

func (r *musReader) vector() []float32 {
	length := r.int()
	if r.err != nil || length == 0 {
		return nil
	}
	if length < 0 || length > len(r.bs)-r.n {
		r.err = ErrShortBuffer
		return nil
	}
	v := make([]float32, length)
	for i := range v {
		bits, n, err := varint.Uint32.Unmarshal(r.bs[r.n:])
		r.n += n
		if err != nil {
			r.err = err
			return nil
		}
		v[i] = math.Float32frombits(bits)
	}
	return v
}
