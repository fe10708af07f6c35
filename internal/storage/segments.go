package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// SegFileName names segment segNo of a file set: the base itself for segment 0,
// base.N after that.
func SegFileName(base string, segNo int32) string {
	if segNo <= 0 {
		return base
	}
	return base + "." + strconv.Itoa(int(segNo))
}

// parseSegment reports which segment of base the directory entry name is.
func parseSegment(base, name string) (int32, bool) {
	if name == base {
		return 0, true
	}
	suffix, ok := strings.CutPrefix(name, base+".")
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(suffix, 10, 32)
	if err != nil || n <= 0 {
		return 0, false
	}
	return int32(n), true
}

// listSegmentsLocal returns the segment numbers present for lfs, ascending.
// A missing directory has no segments.
func listSegmentsLocal(lfs LocalFileSet) ([]int32, error) {
	ents, err := os.ReadDir(lfs.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var segs []int32
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		if n, ok := parseSegment(lfs.Base, e.Name()); ok {
			segs = append(segs, n)
		}
	}
	slices.Sort(segs)
	return segs, nil
}

// RemoveAllSegments deletes every segment of lfs. Gaps in the numbering are
// fine since the directory is scanned.
func RemoveAllSegments(lfs LocalFileSet) error {
	segs, err := listSegmentsLocal(lfs)
	if err != nil {
		return err
	}
	var errs []error
	for _, segNo := range segs {
		path := filepath.Join(lfs.Dir, SegFileName(lfs.Base, segNo))
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
