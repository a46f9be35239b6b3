package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
	"github.com/poiesic/lorekeep/core"
)

// Key prefixes for different data types
const (
	sourcePrefix      = "ksrc"
	sourceAgentPrefix = "ksrca"
	sourceIDSeq       = "ksrcseq"
	chunkPrefix       = "kchk"
	checkpointSuffix  = "chkpt"
)

// makeSourceKey generates a key for a knowledge source by ID.
// Format: prefix:id, with the ID in BigEndian so keys sort by ID.
func makeSourceKey(id core.ID) []byte {
	prefix := []byte(sourcePrefix + ":")
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// sourceIDFromKey recovers the ID from a primary source key.
func sourceIDFromKey(key []byte) core.ID {
	return core.ID(binary.BigEndian.Uint64(key[len(key)-8:]))
}

// makeSourceAgentKey generates a composite key for the agent index.
// Format: prefix:agentID:sourceID
func makeSourceAgentKey(agentID uuid.UUID, id core.ID) []byte {
	prefix := makePartialSourceAgentKey(agentID)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialSourceAgentKey generates the prefix of all index keys for an agent.
// Format: prefix:agentID
func makePartialSourceAgentKey(agentID uuid.UUID) []byte {
	prefix := []byte(sourceAgentPrefix + ":")
	buf := make([]byte, len(prefix)+len(agentID))
	offset := copy(buf, prefix)
	copy(buf[offset:], agentID[:])
	return buf
}

// makeChunkKey generates a key for the chunk at index within a source.
// Format: prefix:sourceID:index
func makeChunkKey(sourceID core.ID, index int) []byte {
	prefix := makePartialChunkKey(sourceID)
	buf := make([]byte, len(prefix)+4)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint32(buf[offset:], uint32(index))
	return buf
}

// makePartialChunkKey generates the prefix of all chunk keys for a source.
// Format: prefix:sourceID
func makePartialChunkKey(sourceID core.ID) []byte {
	prefix := []byte(chunkPrefix + ":")
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(sourceID))
	return buf
}

// makeCheckpointKey generates a key for processor checkpoints.
func makeCheckpointKey(processorType string) []byte {
	return []byte(fmt.Sprintf("%s:%s", processorType, checkpointSuffix))
}
