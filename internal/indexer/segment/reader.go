package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/errors"
)

// Reader gives random access to the postings of one snapshot file. Opening
// a file verifies its checksum, so a Reader never serves torn data.
type Reader struct {
	file     *os.File
	filePath string
	header   SegmentHeader
	dict     []DictEntry
	meta     Meta
	postBase int64
}

func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening segment file: %w", err)
	}
	r, err := newReader(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func newReader(f *os.File, path string) (*Reader, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat segment file: %w", err)
	}
	size := info.Size()
	if size < int64(HeaderSize+FooterSize) {
		return nil, corrupt(path, "file too short (%d bytes)", size)
	}

	headerBytes := make([]byte, HeaderSize)
	if _, err := f.ReadAt(headerBytes, 0); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	header := decodeHeader(headerBytes)
	if header.Magic != MagicBytes {
		return nil, corrupt(path, "bad magic bytes %x", header.Magic)
	}
	if header.Version != FormatVersion {
		return nil, corrupt(path, "unsupported format version %d", header.Version)
	}
	bodySize := header.PostSize + header.DictSize + header.MetaSize
	if header.PostOffset != int64(HeaderSize) ||
		header.DictOffset != header.PostOffset+header.PostSize ||
		int64(HeaderSize)+bodySize+int64(FooterSize) != size {
		return nil, corrupt(path, "section offsets do not match file size")
	}

	footer := make([]byte, FooterSize)
	if _, err := f.ReadAt(footer, size-int64(FooterSize)); err != nil {
		return nil, fmt.Errorf("reading footer: %w", err)
	}
	crc := crc32.NewIEEE()
	if _, err := io.Copy(crc, io.NewSectionReader(f, int64(HeaderSize), bodySize)); err != nil {
		return nil, fmt.Errorf("checksumming segment: %w", err)
	}
	if want := binary.LittleEndian.Uint32(footer[0:4]); crc.Sum32() != want {
		return nil, corrupt(path, "checksum mismatch: got %08x want %08x", crc.Sum32(), want)
	}

	dictBytes := make([]byte, header.DictSize)
	if _, err := f.ReadAt(dictBytes, header.DictOffset); err != nil {
		return nil, fmt.Errorf("reading dictionary: %w", err)
	}
	var dict []DictEntry
	if err := json.Unmarshal(dictBytes, &dict); err != nil {
		return nil, corrupt(path, "parsing dictionary: %v", err)
	}
	if uint32(len(dict)) != header.TermCount {
		return nil, corrupt(path, "dictionary has %d terms, header says %d", len(dict), header.TermCount)
	}

	metaBytes := make([]byte, header.MetaSize)
	if _, err := f.ReadAt(metaBytes, header.DictOffset+header.DictSize); err != nil {
		return nil, fmt.Errorf("reading metadata: %w", err)
	}
	var meta Meta
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return nil, corrupt(path, "parsing metadata: %v", err)
	}

	return &Reader{
		file:     f,
		filePath: path,
		header:   header,
		dict:     dict,
		meta:     meta,
		postBase: header.PostOffset,
	}, nil
}

// Search returns the postings of one term, or nil when the snapshot does
// not contain it.
func (r *Reader) Search(term string) (index.PostingList, error) {
	idx := sort.Search(len(r.dict), func(i int) bool {
		return r.dict[i].Term >= term
	})
	if idx >= len(r.dict) || r.dict[idx].Term != term {
		return nil, nil
	}
	return r.readPostings(r.dict[idx])
}

// Entries decodes every term in dictionary order.
func (r *Reader) Entries() ([]index.TermEntry, error) {
	entries := make([]index.TermEntry, 0, len(r.dict))
	for _, d := range r.dict {
		postings, err := r.readPostings(d)
		if err != nil {
			return nil, err
		}
		entries = append(entries, index.TermEntry{Term: d.Term, Postings: postings})
	}
	return entries, nil
}

func (r *Reader) readPostings(entry DictEntry) (index.PostingList, error) {
	if entry.PostOffset < 0 || entry.PostOffset+int64(entry.PostLen) > r.header.PostSize {
		return nil, corrupt(r.filePath, "postings for %q out of range", entry.Term)
	}
	postingsBytes := make([]byte, entry.PostLen)
	if _, err := r.file.ReadAt(postingsBytes, r.postBase+entry.PostOffset); err != nil {
		return nil, fmt.Errorf("reading postings: %w", err)
	}
	var postings index.PostingList
	if err := json.Unmarshal(postingsBytes, &postings); err != nil {
		return nil, corrupt(r.filePath, "parsing postings for %q: %v", entry.Term, err)
	}
	return postings, nil
}

func (r *Reader) Terms() int {
	return len(r.dict)
}

func (r *Reader) DocCount() uint32 {
	return r.header.DocCount
}

func (r *Reader) Header() SegmentHeader {
	return r.header
}

func (r *Reader) Meta() Meta {
	return r.meta
}

func (r *Reader) Path() string {
	return r.filePath
}

func (r *Reader) Close() error {
	return r.file.Close()
}

func corrupt(path, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", apperrors.ErrSnapshotCorrupt, path, fmt.Sprintf(format, args...))
}
