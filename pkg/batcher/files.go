package batcher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/slices"
)

var ErrNoTimestamp = errors.New("file name does not start with a timestamp")

// FileTimestamp returns the UTC epoch seconds a feed file name starts with,
// e.g. 2016/03/07/1457334014_2016-03-07-07-00-14.bin -> 1457334014
func FileTimestamp(path string) (int64, error) {
	name := filepath.Base(path)

	prefix, _, found := strings.Cut(name, "_")
	if !found {
		return 0, fmt.Errorf("%w: %s", ErrNoTimestamp, name)
	}

	timestamp, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrNoTimestamp, name)
	}

	return timestamp, nil
}

// FileBasename strips the directory and extension,
// e.g. 2016/03/07/1457334014_2016-03-07-07-00-14.bin -> 1457334014_2016-03-07-07-00-14
func FileBasename(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// FileDatePath returns the YYYY/MM/DD directories a feed file sits in
func FileDatePath(path string) string {
	parts := strings.Split(filepath.ToSlash(filepath.Clean(path)), "/")
	if len(parts) < 4 {
		return ""
	}

	return strings.Join(parts[len(parts)-4:len(parts)-1], "/")
}

// FileIterator lists the feed files under Root with a timestamp in [Start, Finish), in timestamp order.
//
// Files are kept in one directory per calendar day, Root/YYYY/MM/DD, with the day taken in Location.
// Directories are listed lazily a day at a time. Reset starts the sequence again from Start.
type FileIterator struct {
	Root     string
	Start    int64
	Finish   int64
	Location *time.Location

	day   time.Time
	files []string
}

func NewFileIterator(root string, start int64, finish int64, location *time.Location) *FileIterator {
	if location == nil {
		location = time.UTC
	}

	iterator := &FileIterator{
		Root:     root,
		Start:    start,
		Finish:   finish,
		Location: location,
	}
	iterator.Reset()

	return iterator
}

func (it *FileIterator) Reset() {
	startTime := time.Unix(it.Start, 0).In(it.Location)
	it.day = time.Date(startTime.Year(), startTime.Month(), startTime.Day(), 0, 0, 0, 0, it.Location)
	it.files = nil
}

// Next returns the next file path, false once the window is exhausted
func (it *FileIterator) Next() (string, bool) {
	for len(it.files) == 0 {
		if it.day.Unix() >= it.Finish {
			return "", false
		}

		it.files = it.listDay(it.day)
		it.day = time.Date(it.day.Year(), it.day.Month(), it.day.Day()+1, 0, 0, 0, 0, it.Location)
	}

	next := it.files[0]
	it.files = it.files[1:]

	return next, true
}

// DayDirectory is where the files for the day containing t are kept
func (it *FileIterator) DayDirectory(t time.Time) string {
	return filepath.Join(it.Root, t.In(it.Location).Format("2006/01/02"))
}

type timestampedFile struct {
	path      string
	timestamp int64
}

func (it *FileIterator) listDay(day time.Time) []string {
	directory := it.DayDirectory(day)

	entries, err := os.ReadDir(directory)
	if errors.Is(err, os.ErrNotExist) {
		log.Debug().Str("directory", directory).Msg("No feed files for day")
		return nil
	} else if err != nil {
		log.Error().Err(err).Str("directory", directory).Msg("Failed to read feed directory")
		return nil
	}

	log.Info().Str("directory", directory).Msg("Processing date")

	var files []timestampedFile
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		path := filepath.Join(directory, entry.Name())

		timestamp, err := FileTimestamp(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Skipping feed file")
			continue
		}

		if timestamp >= it.Start && timestamp < it.Finish {
			files = append(files, timestampedFile{path: path, timestamp: timestamp})
		}
	}

	slices.SortFunc(files, func(a, b timestampedFile) int {
		if a.timestamp != b.timestamp {
			if a.timestamp < b.timestamp {
				return -1
			}
			return 1
		}
		return strings.Compare(a.path, b.path)
	})

	paths := make([]string, 0, len(files))
	for _, file := range files {
		paths = append(paths, file.path)
	}

	return paths
}
