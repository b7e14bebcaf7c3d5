package sandbox

import (
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/google/shlex"

	"github.com/isdmx/coderunner/config"
)

// Language identifies one supported execution language.
type Language string

// Supported languages
const (
	LanguagePython     Language = "python"
	LanguageJavaScript Language = "javascript"
	LanguageTypeScript Language = "typescript"
	LanguageC          Language = "c"
	LanguageCPP        Language = "cpp"
	LanguageJava       Language = "java"
	LanguageGo         Language = "go"
	LanguageRust       Language = "rust"
	LanguageRuby       Language = "ruby"
	LanguageR          Language = "r"
)

// AllLanguages lists every supported language in a stable order.
func AllLanguages() []Language {
	return []Language{
		LanguagePython, LanguageJavaScript, LanguageTypeScript, LanguageC, LanguageCPP,
		LanguageJava, LanguageGo, LanguageRust, LanguageRuby, LanguageR,
	}
}

// ParseLanguage maps a request's language string onto the closed set.
func ParseLanguage(s string) (Language, bool) {
	for _, lang := range AllLanguages() {
		if string(lang) == s {
			return lang, true
		}
	}
	return "", false
}

// Toolchain names the executables and extra settings used for one language.
type Toolchain struct {
	Command string   // compiler, or interpreter for non-compiled languages
	Runtime string   // runtime for languages compiled to scripts or bytecode
	Flags   []string // extra compiler flags
	Env     []string // KEY=VALUE pairs appended to the host environment
}

// Profile describes how to build, run and clean up one language. Every method
// is pure given the workspace, except PreRun which may touch the filesystem.
type Profile interface {
	Language() Language
	Extension() string
	Compiled() bool
	SourceName(token string) string
	WrapSource(code string) string
	CompileArgs(ws *Workspace) []string
	OutputPath(ws *Workspace) string
	PreRun(fs FileSystem, ws *Workspace) error
	RunArgs(ws *Workspace) []string
	// Artifacts lists files (glob patterns allowed) produced besides the source.
	Artifacts(ws *Workspace) []string
	Env() []string
}

var defaultToolchains = map[Language]config.Language{
	LanguagePython:     {Command: "python3"},
	LanguageJavaScript: {Command: "node"},
	LanguageTypeScript: {Command: "tsc", Runtime: "node", Flags: "--target es2020 --module es2020 --skipLibCheck"},
	LanguageC:          {Command: "gcc", Flags: "-O2 -std=c17"},
	LanguageCPP:        {Command: "g++", Flags: "-O2 -std=c++17"},
	LanguageJava:       {Command: "javac", Runtime: "java"},
	LanguageGo:         {Command: "go"},
	LanguageRust:       {Command: "rustc", Flags: "-O"},
	LanguageRuby:       {Command: "ruby"},
	LanguageR:          {Command: "Rscript"},
}

// Registry holds exactly one profile per supported language.
type Registry struct {
	profiles map[Language]Profile
}

// NewRegistry builds the registry, layering overrides on top of the default toolchains.
func NewRegistry(overrides map[string]config.Language) (*Registry, error) {
	for id := range overrides {
		if _, ok := ParseLanguage(id); !ok {
			return nil, fmt.Errorf("unknown language in languages section: %s", id)
		}
	}

	r := &Registry{profiles: make(map[Language]Profile, len(defaultToolchains))}

	for _, lang := range AllLanguages() {
		tc, err := resolveToolchain(defaultToolchains[lang], overrides[string(lang)])
		if err != nil {
			return nil, fmt.Errorf("language %s: %w", lang, err)
		}
		r.profiles[lang] = newProfile(lang, tc)
	}

	return r, nil
}

// NewRegistryFromConfig builds the registry from the languages section of cfg.
func NewRegistryFromConfig(cfg *config.Config) (*Registry, error) {
	return NewRegistry(cfg.Languages)
}

// LanguageInfo describes one supported language to clients.
type LanguageInfo struct {
	ID       Language `json:"id"`
	Compiled bool     `json:"compiled"`
}

// Describe lists every registered language in name order.
func (r *Registry) Describe() []LanguageInfo {
	langs := r.Languages()
	infos := make([]LanguageInfo, len(langs))
	for i, lang := range langs {
		infos[i] = LanguageInfo{ID: lang, Compiled: r.profiles[lang].Compiled()}
	}
	return infos
}

// Profile returns the profile for lang.
func (r *Registry) Profile(lang Language) (Profile, bool) {
	p, ok := r.profiles[lang]
	return p, ok
}

// Languages returns the registered languages sorted by name.
func (r *Registry) Languages() []Language {
	langs := make([]Language, 0, len(r.profiles))
	for lang := range r.profiles {
		langs = append(langs, lang)
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i] < langs[j] })
	return langs
}

func resolveToolchain(def, override config.Language) (Toolchain, error) {
	merged := def
	if override.Command != "" {
		merged.Command = override.Command
	}
	if override.Runtime != "" {
		merged.Runtime = override.Runtime
	}
	if override.Flags != "" {
		merged.Flags = override.Flags
	}

	flags, err := shlex.Split(merged.Flags)
	if err != nil {
		return Toolchain{}, fmt.Errorf("parse flags %q: %w", merged.Flags, err)
	}

	env := make([]string, 0, len(override.Environment))
	for key, value := range override.Environment {
		env = append(env, envKey(key)+"="+value)
	}
	sort.Strings(env)

	return Toolchain{
		Command: merged.Command,
		Runtime: merged.Runtime,
		Flags:   flags,
		Env:     env,
	}, nil
}

// lowercaseEnv lists variables that tools read in lower case.
var lowercaseEnv = map[string]bool{
	"http_proxy": true, "https_proxy": true, "ftp_proxy": true, "no_proxy": true, "all_proxy": true,
}

// envKey restores the case viper dropped from an environment map key. Names are
// upper-cased except the proxy variables, which keep their lower-case spelling.
func envKey(key string) string {
	key = strings.ToLower(key)
	if lowercaseEnv[key] {
		return key
	}
	return strings.ToUpper(key)
}

func newProfile(lang Language, tc Toolchain) Profile {
	switch lang {
	case LanguagePython:
		return pythonProfile{base{lang: lang, ext: ".py", tc: tc}}
	case LanguageJavaScript:
		return interpretedProfile{base{lang: lang, ext: ".js", tc: tc}}
	case LanguageRuby:
		return interpretedProfile{base{lang: lang, ext: ".rb", tc: tc}}
	case LanguageR:
		return rProfile{base{lang: lang, ext: ".R", tc: tc}}
	case LanguageTypeScript:
		return typescriptProfile{base{lang: lang, ext: ".ts", tc: tc}}
	case LanguageC:
		return gccProfile{base: base{lang: lang, ext: ".c", tc: tc}, libs: []string{"-lm"}}
	case LanguageCPP:
		return gccProfile{base: base{lang: lang, ext: ".cpp", tc: tc}}
	case LanguageJava:
		return javaProfile{base{lang: lang, ext: ".java", tc: tc}}
	case LanguageGo:
		return goProfile{base{lang: lang, ext: ".go", tc: tc}}
	case LanguageRust:
		return rustProfile{base{lang: lang, ext: ".rs", tc: tc}}
	default:
		panic(fmt.Sprintf("sandbox: no profile for language %q", lang))
	}
}

// base carries the behaviour shared by most profiles.
type base struct {
	lang Language
	ext  string
	tc   Toolchain
}

func (b base) Language() Language { return b.lang }

func (b base) Extension() string { return b.ext }

func (base) Compiled() bool { return false }

func (b base) SourceName(token string) string { return "main_" + token + b.ext }

func (base) WrapSource(code string) string { return code }

func (base) CompileArgs(*Workspace) []string { return nil }

func (base) OutputPath(*Workspace) string { return "" }

func (base) PreRun(FileSystem, *Workspace) error { return nil }

func (base) Artifacts(*Workspace) []string { return nil }

func (b base) Env() []string { return b.tc.Env }

func (b base) binaryPath(ws *Workspace) string {
	name := "main_" + ws.Token
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(ws.Dir, name)
}

type interpretedProfile struct{ base }

func (p interpretedProfile) RunArgs(ws *Workspace) []string {
	return []string{p.tc.Command, ws.SourcePath}
}

type pythonProfile struct{ base }

const pythonEncodingHeader = "# -*- coding: utf-8 -*-\n"

func (pythonProfile) WrapSource(code string) string { return pythonEncodingHeader + code }

func (p pythonProfile) RunArgs(ws *Workspace) []string {
	// -u keeps output unbuffered, -B skips writing .pyc files.
	return []string{p.tc.Command, "-u", "-B", ws.SourcePath}
}

func (pythonProfile) Artifacts(ws *Workspace) []string {
	return []string{filepath.Join(ws.Dir, "__pycache__")}
}

type rProfile struct{ base }

func (p rProfile) RunArgs(ws *Workspace) []string {
	return []string{p.tc.Command, "--vanilla", ws.SourcePath}
}

// R's default graphics device writes plots to Rplots.pdf in the working directory.
func (rProfile) Artifacts(ws *Workspace) []string {
	return []string{filepath.Join(ws.Dir, "Rplots.pdf")}
}

type typescriptProfile struct{ base }

func (typescriptProfile) Compiled() bool { return true }

func (p typescriptProfile) CompileArgs(ws *Workspace) []string {
	args := append([]string{p.tc.Command}, p.tc.Flags...)
	return append(args, "--outDir", ws.Dir, ws.SourcePath)
}

func (typescriptProfile) OutputPath(ws *Workspace) string {
	return filepath.Join(ws.Dir, "main_"+ws.Token+".js")
}

// PreRun renames the emitted ES module so node loads it as one.
func (p typescriptProfile) PreRun(fs FileSystem, ws *Workspace) error {
	return fs.Rename(p.OutputPath(ws), p.modulePath(ws))
}

func (p typescriptProfile) RunArgs(ws *Workspace) []string {
	return []string{p.tc.Runtime, p.modulePath(ws)}
}

func (p typescriptProfile) Artifacts(ws *Workspace) []string {
	return []string{p.OutputPath(ws), p.modulePath(ws)}
}

func (typescriptProfile) modulePath(ws *Workspace) string {
	return filepath.Join(ws.Dir, "main_"+ws.Token+".mjs")
}

// gccProfile covers gcc-compatible C and C++ compilers.
type gccProfile struct {
	base
	libs []string
}

func (gccProfile) Compiled() bool { return true }

func (p gccProfile) CompileArgs(ws *Workspace) []string {
	args := append([]string{p.tc.Command}, p.tc.Flags...)
	args = append(args, "-o", p.OutputPath(ws), ws.SourcePath)
	return append(args, p.libs...)
}

func (p gccProfile) OutputPath(ws *Workspace) string { return p.binaryPath(ws) }

func (p gccProfile) RunArgs(ws *Workspace) []string { return []string{p.OutputPath(ws)} }

func (p gccProfile) Artifacts(ws *Workspace) []string { return []string{p.OutputPath(ws)} }

type goProfile struct{ base }

func (goProfile) Compiled() bool { return true }

func (p goProfile) CompileArgs(ws *Workspace) []string {
	args := append([]string{p.tc.Command, "build"}, p.tc.Flags...)
	return append(args, "-o", p.OutputPath(ws), ws.SourcePath)
}

func (p goProfile) OutputPath(ws *Workspace) string { return p.binaryPath(ws) }

func (p goProfile) RunArgs(ws *Workspace) []string { return []string{p.OutputPath(ws)} }

func (p goProfile) Artifacts(ws *Workspace) []string { return []string{p.OutputPath(ws)} }

type rustProfile struct{ base }

func (rustProfile) Compiled() bool { return true }

func (p rustProfile) CompileArgs(ws *Workspace) []string {
	args := append([]string{p.tc.Command}, p.tc.Flags...)
	return append(args, "-o", p.OutputPath(ws), ws.SourcePath)
}

func (p rustProfile) OutputPath(ws *Workspace) string { return p.binaryPath(ws) }

func (p rustProfile) RunArgs(ws *Workspace) []string { return []string{p.OutputPath(ws)} }

// rustc may leave a .pdb next to the binary on Windows.
func (p rustProfile) Artifacts(ws *Workspace) []string {
	return []string{p.OutputPath(ws), filepath.Join(ws.Dir, "main_"+ws.Token+".pdb")}
}

// javaProfile compiles Main.java; the class name must match the file name, so
// the token lives only in the workspace directory.
type javaProfile struct{ base }

func (javaProfile) Compiled() bool { return true }

func (javaProfile) SourceName(string) string { return "Main.java" }

func (p javaProfile) CompileArgs(ws *Workspace) []string {
	args := append([]string{p.tc.Command}, p.tc.Flags...)
	return append(args, "-encoding", "UTF-8", "-d", ws.Dir, ws.SourcePath)
}

func (javaProfile) OutputPath(ws *Workspace) string { return filepath.Join(ws.Dir, "Main.class") }

func (p javaProfile) RunArgs(ws *Workspace) []string {
	return []string{p.tc.Runtime, "-cp", ws.Dir, "Main"}
}

// Nested and anonymous classes compile to Main$Inner.class and friends.
func (javaProfile) Artifacts(ws *Workspace) []string {
	return []string{filepath.Join(ws.Dir, "*.class")}
}
