package export

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/lupine-engine/lupine/internal/core/log"
	"github.com/lupine-engine/lupine/internal/core/project"
)

const (
	webMemoryMin     = 64
	webMemoryMax     = 2048
	webMemoryDefault = 512

	webCanvasWidthDefault  = 1280
	webCanvasHeightDefault = 720
)

// WebExporter compiles the runtime with an emscripten toolchain and emits
// the HTML shell, JS loader, web manifest and service worker around the
// generated game.js/game.wasm pair.
type WebExporter struct {
	logger log.Log
}

func NewWebExporter(logger log.Log) *WebExporter {
	if logger == nil {
		logger = log.Provide()
	}
	return &WebExporter{logger: logger}
}

func (e *WebExporter) Target() Target      { return TargetWeb }
func (e *WebExporter) DisplayName() string { return "Web HTML5" }

func (e *WebExporter) Available() bool {
	return toolAvailable("LUPINE_EMSCRIPTEN", "emcc")
}

func (e *WebExporter) Validate(cfg Config) error {
	if err := validateCommon(cfg); err != nil {
		return err
	}
	if cfg.RuntimeBinary == "" {
		return errors.New("runtime library path must not be empty")
	}
	if mem := cfg.Web.MemorySizeMB; mem != 0 && (mem < webMemoryMin || mem > webMemoryMax) {
		return errors.Errorf("memory size %d MB out of range [%d, %d]",
			mem, webMemoryMin, webMemoryMax)
	}
	return nil
}

func (e *WebExporter) Export(ctx context.Context, proj *project.Project, projectDir string, cfg Config, progress ProgressFunc) Result {
	if err := e.Validate(cfg); err != nil {
		return Result{Err: err}
	}
	s := newSession(ctx, progress, e.logger)
	s.report(0, "preparing output directory")

	if err := os.MkdirAll(cfg.OutputDirectory, 0o755); err != nil {
		return s.fail(errors.Wrap(err, "create output directory"))
	}

	s.report(0.1, "building asset bundle")
	bundlePath := filepath.Join(cfg.OutputDirectory, "assets.bundle")
	if err := buildBundle(s, projectDir, bundlePath); err != nil {
		return s.fail(errors.Wrap(err, "build bundle"))
	}
	s.record(bundlePath)
	if err := s.checkpoint(); err != nil {
		return s.fail(err)
	}

	s.report(0.2, "compiling wasm")
	emcc, err := lookupTool("LUPINE_EMSCRIPTEN", "emcc")
	if err != nil {
		return s.fail(err)
	}
	jsPath := filepath.Join(cfg.OutputDirectory, "game.js")
	args := e.compilerArgs(cfg, bundlePath, jsPath)
	cmd := exec.CommandContext(s.ctx, emcc, args...)
	cmd.Dir = cfg.OutputDirectory
	if out, err := cmd.CombinedOutput(); err != nil {
		return s.fail(errors.Wrapf(err, "emcc: %s", strings.TrimSpace(string(out))))
	}
	s.record(jsPath)
	s.record(filepath.Join(cfg.OutputDirectory, "game.wasm"))
	if err := s.checkpoint(); err != nil {
		return s.fail(err)
	}

	s.report(0.7, "writing web shell")
	width, height := cfg.Web.CanvasWidth, cfg.Web.CanvasHeight
	if width <= 0 {
		width = webCanvasWidthDefault
	}
	if height <= 0 {
		height = webCanvasHeightDefault
	}

	files := map[string]string{
		"index.html":           htmlShell(proj.Name, width, height),
		"loader.js":            loaderScript(),
		"manifest.webmanifest": webManifest(proj.Name),
		"sw.js":                serviceWorker(),
	}
	for name, content := range files {
		path := filepath.Join(cfg.OutputDirectory, name)
		if err := writeFile(s, path, []byte(content), 0o644); err != nil {
			return s.fail(err)
		}
	}

	e.logger.Info("web export complete",
		log.String("project", proj.Name),
		log.String("output", cfg.OutputDirectory))
	return s.done(filepath.Join(cfg.OutputDirectory, "index.html"))
}

// compilerArgs maps the web options onto emscripten flags.
func (e *WebExporter) compilerArgs(cfg Config, bundlePath, jsPath string) []string {
	mem := cfg.Web.MemorySizeMB
	if mem == 0 {
		mem = webMemoryDefault
	}
	args := []string{
		cfg.RuntimeBinary,
		"-O2",
		"-sWASM=1",
		"-sALLOW_MEMORY_GROWTH=0",
		fmt.Sprintf("-sINITIAL_MEMORY=%d", mem*1024*1024),
		"-sEXPORTED_RUNTIME_METHODS=ccall,cwrap",
		"-sMODULARIZE=1",
		"-sEXPORT_NAME=createLupineModule",
		"--preload-file", bundlePath + "@/assets.bundle",
	}
	if cfg.Web.EnableThreads {
		args = append(args, "-pthread", "-sPTHREAD_POOL_SIZE=4")
	}
	if cfg.Web.EnableSIMD {
		args = append(args, "-msimd128")
	}
	if cfg.IncludeDebugSymbols {
		args = append(args, "-g")
	}
	args = append(args, "-o", jsPath)
	return args
}

func htmlShell(title string, width, height int) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%[1]s</title>
<link rel="manifest" href="manifest.webmanifest">
<style>
  html, body { margin: 0; background: #111; height: 100%%; }
  #canvas { display: block; margin: 0 auto; background: #000; }
  #overlay {
    position: fixed; inset: 0; display: flex; flex-direction: column;
    align-items: center; justify-content: center; color: #eee;
    font-family: sans-serif; background: #111; transition: opacity 0.3s;
  }
  #overlay.hidden { opacity: 0; pointer-events: none; }
  #bar { width: 240px; height: 6px; background: #333; margin-top: 12px; }
  #fill { width: 0; height: 100%%; background: #7ac; }
  #error { color: #e66; display: none; white-space: pre-wrap; }
</style>
</head>
<body>
<canvas id="canvas" width="%[2]d" height="%[3]d" oncontextmenu="event.preventDefault()"></canvas>
<div id="overlay">
  <div id="status">Loading %[1]s&hellip;</div>
  <div id="bar"><div id="fill"></div></div>
  <div id="error"></div>
</div>
<script src="loader.js"></script>
<script src="game.js"></script>
<script>lupineBoot();</script>
</body>
</html>
`, title, width, height)
}

func loaderScript() string {
	return `'use strict';

function lupineBoot() {
  var overlay = document.getElementById('overlay');
  var status = document.getElementById('status');
  var fill = document.getElementById('fill');
  var errorBox = document.getElementById('error');

  function setProgress(fraction) {
    fill.style.width = Math.round(fraction * 100) + '%';
  }

  function showFailure(message) {
    status.style.display = 'none';
    errorBox.style.display = 'block';
    errorBox.textContent = 'Failed to start: ' + message;
  }

  if ('serviceWorker' in navigator) {
    navigator.serviceWorker.register('sw.js').catch(function () {});
  }

  createLupineModule({
    canvas: document.getElementById('canvas'),
    setStatus: function (text) {
      var m = text.match(/(\d+)\/(\d+)/);
      if (m) setProgress(parseInt(m[1], 10) / parseInt(m[2], 10));
      if (text) status.textContent = text;
    },
    onRuntimeInitialized: function () {
      setProgress(1);
      overlay.classList.add('hidden');
    },
    onAbort: function (reason) {
      showFailure(String(reason || 'aborted'));
    }
  }).catch(function (err) {
    showFailure(err && err.message ? err.message : String(err));
  });
}
`
}

func webManifest(name string) string {
	return fmt.Sprintf(`{
  "name": %q,
  "short_name": %q,
  "start_url": "./index.html",
  "display": "fullscreen",
  "background_color": "#111111",
  "theme_color": "#111111"
}
`, name, name)
}

// serviceWorker precaches the core files and caches asset fetches on
// demand.
func serviceWorker() string {
	return `'use strict';

var CORE_CACHE = 'lupine-core-v1';
var ASSET_CACHE = 'lupine-assets-v1';
var CORE_FILES = ['./index.html', './loader.js', './game.js', './game.wasm'];

self.addEventListener('install', function (event) {
  event.waitUntil(
    caches.open(CORE_CACHE).then(function (cache) {
      return cache.addAll(CORE_FILES);
    })
  );
});

self.addEventListener('activate', function (event) {
  event.waitUntil(
    caches.keys().then(function (keys) {
      return Promise.all(keys.filter(function (k) {
        return k !== CORE_CACHE && k !== ASSET_CACHE;
      }).map(function (k) { return caches.delete(k); }));
    })
  );
});

self.addEventListener('fetch', function (event) {
  event.respondWith(
    caches.match(event.request).then(function (cached) {
      if (cached) return cached;
      return fetch(event.request).then(function (response) {
        if (response.ok && event.request.url.indexOf('assets') !== -1) {
          var copy = response.clone();
          caches.open(ASSET_CACHE).then(function (cache) {
            cache.put(event.request, copy);
          });
        }
        return response;
      });
    })
  );
});
`
}
