package lower

// runtimeHeader is the hot-reload runtime compiled into every generated
// program. Each reloadable function gets a HotReload<Signature> cell bound to
// its (symbol, lib, copy, lock) quadruple; get() is the staleness protocol:
// fast-path mtime check, lockfile short-circuit, then release-copy-open-bind.
// Loads always go through the copy so the producer may overwrite lib at any
// time, and a present lockfile means the lib bytes are not yet trustworthy.
const runtimeHeader = `// Generated by tshot. Do not edit.
#include <dlfcn.h>
#include <stdio.h>
#include <stdlib.h>
#include <sys/stat.h>
#include <time.h>
#include <unistd.h>

static void hr_fatal(const char* what, const char* detail) {
  fprintf(stderr, "FATAL: %s: %s\n", what, detail ? detail : "unknown error");
  abort();
}

static void hr_copy_file(const char* from, const char* to) {
  FILE* in = fopen(from, "rb");
  if (!in) hr_fatal("open for copy", from);
  FILE* out = fopen(to, "wb");
  if (!out) hr_fatal("open copy target", to);
  char buf[1 << 16];
  size_t n;
  while ((n = fread(buf, 1, sizeof buf, in)) > 0) {
    if (fwrite(buf, 1, n, out) != n) hr_fatal("write copy", to);
  }
  fclose(in);
  if (fclose(out) != 0) hr_fatal("close copy", to);
}

static int hr_exists(const char* path) {
  struct stat st;
  return stat(path, &st) == 0;
}

template <typename F>
class HotReload;

template <typename R, typename... Args>
class HotReload<R(Args...)> {
 public:
  typedef R (*Fn)(Args...);

  HotReload(const char* name, const char* lib, const char* copy, const char* lock)
      : name_(name), lib_(lib), copy_(copy), lock_(lock),
        handle_(nullptr), fn_(nullptr), loadtime_(0) {}

  Fn get() {
    struct stat st;
    if (stat(lib_, &st) != 0) hr_fatal("stat", lib_);
    if (st.st_mtime == loadtime_) return fn_;
    if (hr_exists(lock_)) return fn_;  // producer mid-build, lib bytes are stale
    if (handle_ && dlclose(handle_) != 0) hr_fatal("dlclose", dlerror());
    hr_copy_file(lib_, copy_);
    handle_ = dlopen(copy_, RTLD_NOW | RTLD_LOCAL);
    if (!handle_) hr_fatal("dlopen", dlerror());
    fn_ = (Fn)dlsym(handle_, name_);
    if (!fn_) hr_fatal("dlsym", dlerror());
    loadtime_ = st.st_mtime;
    return fn_;
  }

 private:
  const char* name_;
  const char* lib_;
  const char* copy_;
  const char* lock_;
  void* handle_;
  Fn fn_;
  time_t loadtime_;
};

static void print(int n) {
  printf("%d\n", n);
  fflush(stdout);
}

static void sleep_seconds(int n) {
  if (n > 0) sleep((unsigned)n);
}

static void sleep_millis(int n) {
  if (n > 0) usleep((useconds_t)n * 1000);
}
`

// unitPrelude heads every per-function translation unit. Reloadable bodies
// may only call the host API, so the prelude carries just that.
const unitPrelude = `// Generated by tshot. Do not edit.
#include <stdio.h>
#include <unistd.h>

static void print(int n) {
  printf("%d\n", n);
  fflush(stdout);
}

static void sleep_seconds(int n) {
  if (n > 0) sleep((unsigned)n);
}

static void sleep_millis(int n) {
  if (n > 0) usleep((useconds_t)n * 1000);
}
`
