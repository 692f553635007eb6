package assembler

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/stackload/pkg/descriptor"
	"github.com/matzehuels/stackload/pkg/download"
	"github.com/matzehuels/stackload/pkg/errors"
	"github.com/matzehuels/stackload/pkg/locator"
	"github.com/matzehuels/stackload/pkg/observability"
	"github.com/matzehuels/stackload/pkg/program"
	"github.com/matzehuels/stackload/pkg/provider"
	"github.com/matzehuels/stackload/pkg/sandbox"
)

// ErrVetoed is returned by AssembleProgram when AssembleOptions.OnProgram
// rejects the program.
var ErrVetoed = stderrors.New("assembly vetoed")

// Options configures an [Assembler].
type Options struct {
	Clean     bool                // Wipe the download base path once before the first run
	Workers   int                 // Discovery concurrency (default: program.DefaultWorkers)
	Logger    *log.Logger         // (default: log.Default())
	Providers []provider.Provider // Code hosts for provider locators (default: GitHub, GitLab)
}

// AssembleOptions configures one AssembleProgram call.
type AssembleOptions struct {
	// OnProgram runs after the descriptor is loaded and before discovery.
	// Returning false aborts with ErrVetoed.
	OnProgram func(*program.Program) bool
}

// Assembler drives program assembly. One assembler may run any number of
// assemblies, each against its own sandbox.
type Assembler struct {
	downloader *download.Downloader
	providers  *provider.Registry
	opts       Options
	logger     *log.Logger
}

// New creates an assembler that downloads archives with d.
func New(d *download.Downloader, opts Options) *Assembler {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	registry := provider.Default()
	for _, p := range opts.Providers {
		registry.Register(p)
	}
	runID := uuid.NewString()
	return &Assembler{
		downloader: d,
		providers:  registry,
		opts:       opts,
		logger:     opts.Logger.With("run", runID[:8]),
	}
}

// clean wipes the download base path when Options.Clean is set. The
// downloader guarantees this happens at most once per base path.
func (a *Assembler) clean(ctx context.Context) error {
	if !a.opts.Clean {
		return nil
	}
	if _, err := a.downloader.Clean(ctx); err != nil {
		return fmt.Errorf("clean download cache: %w", err)
	}
	return nil
}

// AssembleProgram loads the program at uri (a descriptor file or a
// directory), binds it to sb and discovers every reachable package.
func (a *Assembler) AssembleProgram(ctx context.Context, sb *sandbox.Sandbox, uri string, opts AssembleOptions) (prog *program.Program, err error) {
	start := time.Now()
	observability.Assembly().OnAssembleStart(ctx, uri)
	defer func() {
		observability.Assembly().OnAssembleComplete(ctx, uri, sb.Len(), time.Since(start), err)
	}()

	if err := a.clean(ctx); err != nil {
		return nil, err
	}

	desc, err := descriptor.LoadProgram(uri)
	if err != nil {
		return nil, err
	}
	prog = program.New(desc, program.Options{Workers: a.opts.Workers, Logger: a.logger})
	a.logger.Debug("assembling program", "uri", uri, "path", prog.Path())

	if opts.OnProgram != nil && !opts.OnProgram(prog) {
		return nil, ErrVetoed
	}
	if err := sb.SetProgram(prog.Path()); err != nil {
		return nil, err
	}

	if err := prog.DiscoverPackages(ctx, a.packageForLocator(prog, sb)); err != nil {
		return nil, err
	}
	a.logger.Info("assembled program", "uri", uri, "packages", sb.Len(), "elapsed", time.Since(start).Round(time.Millisecond))
	return prog, nil
}

// packageForLocator is the classification callback of a full assembly.
func (a *Assembler) packageForLocator(prog *program.Program, sb *sandbox.Sandbox) program.PackageForLocator {
	return func(ctx context.Context, loc locator.Locator) (*sandbox.Package, error) {
		resolved, err := prog.ResolveLocator(ctx, a, loc)
		if err != nil {
			return nil, err
		}
		state := resolved.State()
		observability.Assembly().OnLocatorClassified(ctx, state.String())

		switch state {
		case locator.Unavailable:
			a.logger.Debug("skip unavailable locator", "locator", loc.Short())
			return nil, nil
		case locator.Identified, locator.Located:
			if err := checkLocation(resolved); err != nil {
				return nil, err
			}
			return sb.EnsurePackageForLocator(resolved, sandbox.EnsureOptions{Origin: loc.Short()})
		default:
			return nil, errors.New(errors.ErrCodeInvalidDescriptor, "no location found in locator %s", resolved)
		}
	}
}

// AddPackageToProgram adds the package loc points at to an assembled
// program and discovers its mappings. It returns the package and the
// resolved locator; loc itself is not modified.
//
// A package whose discovery is already in flight or done is returned as
// is, unless the locator gave it a location it did not have before. An
// unavailable locator yields a nil package and no error.
func (a *Assembler) AddPackageToProgram(ctx context.Context, sb *sandbox.Sandbox, prog *program.Program, loc locator.Locator) (*sandbox.Package, locator.Locator, error) {
	start := time.Now()
	uri := loc.Short()
	observability.Assembly().OnAssembleStart(ctx, uri)

	pkg, resolved, err := a.addPackage(ctx, sb, prog, loc)
	observability.Assembly().OnAssembleComplete(ctx, uri, sb.Len(), time.Since(start), err)
	return pkg, resolved, err
}

func (a *Assembler) addPackage(ctx context.Context, sb *sandbox.Sandbox, prog *program.Program, loc locator.Locator) (*sandbox.Package, locator.Locator, error) {
	a.logger.Debug("add package", "locator", loc.String())

	resolved, err := prog.ResolveLocator(ctx, a, loc)
	if err != nil {
		return nil, resolved, err
	}
	if resolved.IsUnavailable() {
		return nil, resolved, nil
	}
	a.logger.Debug("resolved locator", "locator", resolved.String())
	if err := checkLocation(resolved); err != nil {
		return nil, resolved, err
	}

	pkg, err := sb.EnsurePackageForLocator(resolved, sandbox.EnsureOptions{Origin: "add"})
	if err != nil {
		return nil, resolved, err
	}
	if err := prog.DiscoverFrom(ctx, pkg, a.scopedPackageForLocator(prog, sb)); err != nil {
		return nil, resolved, err
	}
	return pkg, resolved, nil
}

// scopedPackageForLocator is the callback of an add-package pass.
func (a *Assembler) scopedPackageForLocator(prog *program.Program, sb *sandbox.Sandbox) program.PackageForLocator {
	return func(ctx context.Context, loc locator.Locator) (*sandbox.Package, error) {
		resolved, err := prog.ResolveLocator(ctx, a, loc)
		if err != nil {
			return nil, err
		}
		observability.Assembly().OnLocatorClassified(ctx, resolved.State().String())
		if resolved.IsUnavailable() {
			return nil, nil
		}
		if resolved.UID != "" {
			// ResolveLocator does not stat the location of a uid locator.
			if err := checkLocation(resolved); err != nil {
				return nil, err
			}
		} else if !exists(resolved.Location) {
			panic(fmt.Sprintf("assembler: resolved location %s vanished during discovery", resolved.Location))
		}
		return sb.EnsurePackageForLocator(resolved, sandbox.EnsureOptions{Origin: loc.Short()})
	}
}

// FetchLocator materializes an archive or provider locator and returns
// its unpacked directory. It implements program.Fetcher.
func (a *Assembler) FetchLocator(ctx context.Context, loc locator.Locator) (string, error) {
	archive := loc.Archive
	if archive == "" && loc.Provider != "" {
		u, err := a.providers.ArchiveURL(loc)
		if err != nil {
			return "", errors.Wrap(errors.ErrCodeInvalidDescriptor, err, "locator %s", loc)
		}
		archive = u
	}
	if archive == "" {
		return "", errors.New(errors.ErrCodeInvalidDescriptor, "locator %s has nothing to fetch", loc)
	}
	return a.downloader.GetForArchive(ctx, archive)
}

var gistURL = regexp.MustCompile(`^https?://gist\.github\.com/(\d*).*$`)

// NormalizeURL rewrites known page URLs to their downloadable archive URL.
// Gist pages become https://gist.github.com/gists/<id>/download.
func NormalizeURL(rawURL string) string {
	if m := gistURL.FindStringSubmatch(rawURL); m != nil {
		return "https://gist.github.com/gists/" + m[1] + "/download"
	}
	return rawURL
}

// ProvisionProgramForURL downloads the archive at rawURL and returns the
// path of its program descriptor. An archive without one gets a default
// descriptor whose boot package is the archive root, identified by the
// archive's path below the download base path.
func (a *Assembler) ProvisionProgramForURL(ctx context.Context, rawURL string) (string, error) {
	if err := a.clean(ctx); err != nil {
		return "", err
	}

	u := NormalizeURL(rawURL)
	a.logger.Debug("provision program", "url", u)

	dir, err := a.downloader.GetForArchive(ctx, u)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeFetch, err, "provision %s", u)
	}

	for _, name := range []string{descriptor.ProgramFile, descriptor.ProgramFileTOML} {
		if p := filepath.Join(dir, name); exists(p) {
			return p, nil
		}
	}

	id, err := a.bootID(dir)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, descriptor.ProgramFile)
	a.logger.Info("creating program descriptor", "path", path, "boot", id)
	if err := descriptor.WriteProgram(path, descriptor.DefaultProgram(id)); err != nil {
		return "", fmt.Errorf("write program descriptor: %w", err)
	}
	return path, nil
}

// bootID derives "<host>/<url path>/" from an unpacked archive directory.
func (a *Assembler) bootID(dir string) (string, error) {
	rel, err := filepath.Rel(a.downloader.BasePath(), dir)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", errors.New(errors.ErrCodeInternal, "archive %s is outside %s", dir, a.downloader.BasePath())
	}
	rel = filepath.ToSlash(rel)
	return strings.TrimSuffix(rel, "/"+download.PackageDir) + "/", nil
}

// checkLocation rejects a locator whose location is missing on disk.
func checkLocation(loc locator.Locator) error {
	if loc.Location != "" && !exists(loc.Location) {
		return errors.New(errors.ErrCodeInvalidDescriptor,
			"directory for location not found in locator %s", loc)
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
