// Package processor implements §4.9: the Forge post-install processor
// runner. No teacher file does this (the teacher's LaunchMinecraft only
// ever spawns the game itself); the classpath-build and archive/zip
// manifest read reuse the teacher's own idioms (src/launcher/launcher.go's
// buildClasspath, extractJar) applied to a different kind of jar.
package processor

import (
	"archive/zip"
	"bufio"
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/MangriMen/aether-core/internal/domain"
	"github.com/MangriMen/aether-core/internal/domainerr"
	"github.com/MangriMen/aether-core/internal/events"
	"github.com/MangriMen/aether-core/internal/location"
)

var mavenToken = regexp.MustCompile(`^\[(.+)]$`)

// Context carries the fixed tokens every processor substitution may
// reference, per spec.md §4.9's canonical data map.
type Context struct {
	JavaPath        string
	Side            string // always "client" for this launcher
	ClientJar       string
	MinecraftVersion string
	InstanceDir     string
	LibraryDir      string
	Data            map[string]domain.DataEntry
}

// Runner executes a merged VersionInfo's processors in order.
type Runner struct {
	paths location.Paths
	log   zerolog.Logger
}

func NewRunner(paths location.Paths, log zerolog.Logger) *Runner {
	return &Runner{paths: paths, log: log}
}

// Run walks info.Processors, running every one whose Sides includes
// "client", dividing 30% of bar's progress budget across them.
func (r *Runner) Run(ctx context.Context, info domain.VersionInfo, rc Context, tracker *events.ProgressTracker, barID string) error {
	var clientSteps []domain.Processor
	for _, p := range info.Processors {
		if includesClient(p.Sides) {
			clientSteps = append(clientSteps, p)
		}
	}
	if len(clientSteps) == 0 {
		return nil
	}

	if tracker != nil {
		tracker.Emit(barID, 0, stringPtr("Running forge processors"))
	}

	share := 0.30 / float64(len(clientSteps))
	for _, p := range clientSteps {
		if err := r.runOne(ctx, p, rc); err != nil {
			return err
		}
		if tracker != nil {
			tracker.Emit(barID, share, nil)
		}
	}
	return nil
}

func includesClient(sides []string) bool {
	if len(sides) == 0 {
		return true
	}
	for _, s := range sides {
		if s == "client" {
			return true
		}
	}
	return false
}

func (r *Runner) runOne(ctx context.Context, p domain.Processor, rc Context) error {
	jarPath := r.resolveMaven(p.Jar)
	mainClass, err := readMainClass(jarPath)
	if err != nil {
		return domainerr.Wrap(domainerr.KindProcessorFailed, p.Jar, err)
	}

	cp := make([]string, 0, len(p.Classpath)+1)
	for _, coord := range p.Classpath {
		cp = append(cp, r.resolveMaven(coord))
	}
	cp = append(cp, jarPath)
	classpath := strings.Join(cp, string(os.PathListSeparator))

	args := make([]string, 0, len(p.Args))
	for _, a := range p.Args {
		args = append(args, r.substitute(a, rc))
	}

	cmdArgs := append([]string{"-cp", classpath, mainClass}, args...)
	cmd := exec.CommandContext(ctx, rc.JavaPath, cmdArgs...)
	cmd.Dir = rc.InstanceDir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	r.log.Info().Str("jar", p.Jar).Str("mainClass", mainClass).Msg("running forge processor")
	if err := cmd.Run(); err != nil {
		return domainerr.WithField(domainerr.Wrap(domainerr.KindProcessorFailed, p.Jar, err), "stderr", stderr.String())
	}
	return nil
}

// substitute replaces {TOKEN} with a canonical data entry, [maven:coord]
// with a resolved library path, and leaves anything else literal.
func (r *Runner) substitute(arg string, rc Context) string {
	if strings.HasPrefix(arg, "{") && strings.HasSuffix(arg, "}") {
		token := strings.TrimSuffix(strings.TrimPrefix(arg, "{"), "}")
		if entry, ok := rc.Data[token]; ok {
			return entry.Client
		}
		switch token {
		case "SIDE":
			return rc.Side
		case "MINECRAFT_JAR":
			return rc.ClientJar
		case "MINECRAFT_VERSION":
			return rc.MinecraftVersion
		case "ROOT":
			return rc.InstanceDir
		case "LIBRARY_DIR":
			return rc.LibraryDir
		}
		return arg
	}
	if m := mavenToken.FindStringSubmatch(arg); m != nil {
		return r.resolveMaven(m[1])
	}
	return arg
}

// resolveMaven turns a "group:artifact:version[:classifier][@ext]"
// coordinate into its on-disk library path.
func (r *Runner) resolveMaven(coord string) string {
	ext := "jar"
	if i := strings.LastIndex(coord, "@"); i != -1 {
		ext = coord[i+1:]
		coord = coord[:i]
	}
	parts := strings.Split(coord, ":")
	if len(parts) < 3 {
		return r.paths.LibraryPath(coord)
	}
	group := strings.ReplaceAll(parts[0], ".", "/")
	artifact, version := parts[1], parts[2]
	classifier := ""
	if len(parts) >= 4 {
		classifier = "-" + parts[3]
	}
	rel := filepath.Join(group, artifact, version, artifact+"-"+version+classifier+"."+ext)
	return r.paths.LibraryPath(filepath.ToSlash(rel))
}

// readMainClass parses META-INF/MANIFEST.MF out of jarPath, matching the
// teacher's archive/zip use in extractJar but reading an entry's bytes
// rather than extracting it to disk.
func readMainClass(jarPath string) (string, error) {
	r, err := zip.OpenReader(jarPath)
	if err != nil {
		return "", err
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != "META-INF/MANIFEST.MF" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()

		scanner := bufio.NewScanner(rc)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.HasPrefix(line, "Main-Class:") {
				return strings.TrimSpace(strings.TrimPrefix(line, "Main-Class:")), nil
			}
		}
		return "", domainerr.New(domainerr.KindCorrupted, "MANIFEST.MF: no Main-Class")
	}
	return "", domainerr.New(domainerr.KindCorrupted, "missing META-INF/MANIFEST.MF")
}

func stringPtr(s string) *string { return &s }
