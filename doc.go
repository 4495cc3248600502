// Package condascan discovers conda environment installations beneath
// starting directory trees and reports where each one came from.
//
// # Model
//
// A directory is a conda environment when it carries conda-meta/ as a
// directory and conda-meta/history as a regular file. Every directory a
// scan touches gets a [Guess]: its canonical path, whether it is an
// environment, which installation it derives from, and the versions of
// tracked packages read from conda-meta sidecar files. Guesses are
// memoized in a [Cache] keyed by canonical absolute path, so a physical
// directory is analyzed exactly once per scan however many traversal
// paths, start directories, or symlink chains reach it.
//
// # Base resolution
//
// An environment's bin/activate tells the story: a plain file means the
// environment is its own base; a symlink points into the installation it
// was derived from, and the link target's grandparent directory is looked
// up through the same cache. Cyclic activation links (a target that is
// itself a symlink, or a chain that loops back on itself) stop resolution
// and leave only the raw candidate path.
//
// # Usage
//
// Create a Scanner and survey with callbacks:
//
//	s := condascan.New()
//	err := s.Survey("/opt", func(g *condascan.Guess) {
//		fmt.Println(g.Path, g.Versions["python"])
//	}, nil)
//
// Or index into an in-memory SQLite store and query:
//
//	st, _ := condascan.NewStore(condascan.InMemory)
//	defer st.Close()
//	s := condascan.New(condascan.WithStore(st))
//	err := s.Index([]string{"/opt", "/home"}, nil)
//	summary, err := s.Query().Summarize()
//
// Scanning is read-only introspection: nothing on the filesystem is
// created, modified, or locked. Traversal I/O errors are reported through
// the onError callback and skipped; a malformed conda-meta sidecar file is
// fatal for the run and surfaces as a [MetadataError] naming the file.
package condascan
