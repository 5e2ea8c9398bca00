// Package durapack is the public façade over the durapack frame format: a
// durable, self-locating binary framing scheme that survives bit flips,
// truncation, insertion, and reordering. It re-exports the frame codec,
// scanner, linker, and Reed-Solomon FEC subpackages flat at the root,
// rather than making callers import each subpackage individually.
package durapack

import (
	"crypto/ed25519"

	"github.com/etalazz/durapack/errs"
	"github.com/etalazz/durapack/fec"
	"github.com/etalazz/durapack/frame"
	"github.com/etalazz/durapack/link"
	"github.com/etalazz/durapack/scan"
)

// Error taxonomy.
type Error = errs.Error
type Kind = errs.Kind

const (
	BadMarker          = errs.BadMarker
	UnsupportedVersion = errs.UnsupportedVersion
	FrameTooLarge      = errs.FrameTooLarge
	PayloadTooLarge    = errs.PayloadTooLarge
	IncompleteFrame    = errs.IncompleteFrame
	ChecksumMismatch   = errs.ChecksumMismatch
	HashMismatch       = errs.HashMismatch
	InvalidStructure   = errs.InvalidStructure
	NoFramesFound      = errs.NoFramesFound
	SequenceGap        = errs.SequenceGap
	BackLinkMismatch   = errs.BackLinkMismatch
	IoError            = errs.IoError
	Serialization      = errs.Serialization
)

// Frame types and constants.
type Header = frame.Header
type Frame = frame.Frame
type Flags = frame.Flags
type TrailerKind = frame.TrailerKind
type Builder = frame.Builder

const (
	HasCRC32C     = frame.HasCRC32C
	HasBlake3     = frame.HasBlake3
	IsFirst       = frame.IsFirst
	IsLast        = frame.IsLast
	HasPreamble   = frame.HasPreamble
	HasSyncPrefix = frame.HasSyncPrefix
	IsSuperframe  = frame.IsSuperframe
	HasSkiplist   = frame.HasSkiplist
)

const (
	ProtocolVersion = frame.ProtocolVersion
	MinFrameSize    = frame.MinFrameSize
	MaxFrameSize    = frame.MaxFrameSize
	MaxPayloadSize  = frame.MaxPayloadSize
)

var NewBuilder = frame.NewBuilder
var ChainHash = frame.ChainHash

// EncodeFrame serialises header and payload to wire bytes.
func EncodeFrame(header Header, payload []byte) ([]byte, error) {
	return frame.Encode(header, payload)
}

// EncodeFrameSigned is EncodeFrame plus a detached Ed25519 signature,
// meaningful only when header selects the combined BLAKE3+Ed25519 trailer.
func EncodeFrameSigned(header Header, payload []byte, signingKey ed25519.PrivateKey) ([]byte, error) {
	return frame.EncodeSigned(header, payload, signingKey)
}

// DecodeFrame strictly parses one frame from buffer.
func DecodeFrame(buffer []byte) (Frame, error) {
	return frame.Decode(buffer)
}

// DecodeFrameZeroCopy parses one frame from buffer without copying its
// payload or trailer.
func DecodeFrameZeroCopy(buffer []byte) (Frame, error) {
	return frame.DecodeZeroCopy(buffer)
}

// Scanner.
type LocatedFrame = scan.LocatedFrame
type ScanStats = scan.ScanStats
type ScanOptions = scan.Options

// ScanStream locates every decodable frame in buffer.
func ScanStream(buffer []byte) []LocatedFrame {
	return scan.Scan(buffer)
}

// ScanStreamWithStats is ScanStream plus the stats recorded during the pass.
func ScanStreamWithStats(buffer []byte) ([]LocatedFrame, ScanStats) {
	return scan.ScanWithStats(buffer)
}

// Linker.
type Timeline = link.Timeline
type SequenceGapInfo = link.SequenceGap
type TimelineReport = link.TimelineReport
type ChainConflict = link.ChainConflict
type OrphanCluster = link.OrphanCluster
type RecoveryRecipe = link.RecoveryRecipe
type GapReason = link.GapReason

const (
	MissingById   = link.MissingById
	MissingByHash = link.MissingByHash
)

const (
	InsertParityFrame = link.InsertParityFrame
	RewindOffset      = link.RewindOffset
)

// LinkFrames reconstructs a Timeline from an unordered slice of frames.
func LinkFrames(frames []Frame) Timeline {
	return link.Link(frames)
}

// VerifyBacklinks checks every consecutive pair in a Timeline's chain
// order for a genuinely matching hash link.
func VerifyBacklinks(t Timeline) []link.BackLinkMismatch {
	return link.VerifyBacklinks(t)
}

// AnalyzeFrames builds a TimelineReport from an unordered slice of frames.
func AnalyzeFrames(frames []Frame) TimelineReport {
	return link.Analyze(frames)
}

// AnalyzeLocated builds a TimelineReport from located frames, enabling
// byte-offset-aware RewindOffset recipes.
func AnalyzeLocated(located []LocatedFrame) TimelineReport {
	return link.AnalyzeLocated(located)
}

// ReportToDot renders a TimelineReport as a Graphviz DOT graph.
func ReportToDot(report TimelineReport) string {
	return link.ReportToDot(report)
}

// Reed-Solomon FEC.
type FecBlock = fec.FecBlock
type FecIndexEntry = fec.FecIndexEntry

// RSEncodeBatch produces redundancy parity shards over frames.
func RSEncodeBatch(blockID uint64, frames []Frame, redundancy int) ([]FecBlock, error) {
	return fec.EncodeBatch(blockID, frames, redundancy)
}

// RSDecodeBatch reconstructs the totalFrames data shards of a block from
// whatever subset of blocks is available.
func RSDecodeBatch(blocks []FecBlock, totalFrames int) ([]Frame, error) {
	return fec.DecodeBatch(blocks, totalFrames)
}

// RSCanReconstruct reports whether available shards suffice.
func RSCanReconstruct(available, total int) bool {
	return fec.CanReconstruct(available, total)
}

// Interleave splits bytes round-robin across group lanes.
func Interleave(input []byte, group, shardLen int) ([][]byte, error) {
	return fec.Interleave(input, group, shardLen)
}

// Deinterleave reverses Interleave.
func Deinterleave(stripes [][]byte, group, shardLen int) ([]byte, error) {
	return fec.Deinterleave(stripes, group, shardLen)
}
