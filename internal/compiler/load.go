package compiler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/token"

	"github.com/roach88/qstream/internal/ir"
)

// LoadMode controls how errors are handled during loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// Error code constants for load failures.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeClass       = "E101" // Invalid class declaration
	ErrCodeFieldType   = "E102" // Unsupported or forbidden field type
)

// LoadResult contains the classes loaded from a directory or source.
type LoadResult struct {
	Classes   []ir.ClassSpec
	FileCount int
}

// LoadError represents an error that occurred during loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Load compiles every class declared in the CUE files under dir. Files are
// compiled independently and unified, so a package clause is optional.
func Load(dir string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("classes directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing classes directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(files) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	value := ctx.CompileString("")
	var errs []error
	for _, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			errs = append(errs, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading %s: %v", file, err)})
			if mode == LoadModeFailFast {
				return &LoadResult{FileCount: len(files)}, errs
			}
			continue
		}
		fileVal := ctx.CompileBytes(src, cue.Filename(file))
		if err := fileVal.Err(); err != nil {
			errs = append(errs, convertCompileError(formatCUEError(err), file))
			if mode == LoadModeFailFast {
				return &LoadResult{FileCount: len(files)}, errs
			}
			continue
		}
		value = value.Unify(fileVal)
	}
	if len(errs) > 0 {
		return &LoadResult{FileCount: len(files)}, errs
	}
	if err := value.Err(); err != nil {
		return &LoadResult{FileCount: len(files)}, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result, errs := collect(value, mode)
	result.FileCount = len(files)
	return result, errs
}

// CompileSource compiles the classes declared in a single CUE source.
// filename is used in error positions.
func CompileSource(filename, src string) ([]ir.ClassSpec, error) {
	ctx := cuecontext.New()
	value := ctx.CompileString(src, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	result, errs := collect(value, LoadModeFailFast)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return result.Classes, nil
}

func collect(value cue.Value, mode LoadMode) (*LoadResult, []error) {
	result := &LoadResult{}
	var errs []error

	classesVal := value.LookupPath(cue.ParsePath("class"))
	if !classesVal.Exists() {
		return result, []error{&LoadError{Code: ErrCodeGeneric, Message: "no classes found"}}
	}

	iter, err := classesVal.Fields()
	if err != nil {
		return result, []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating classes: %v", err)}}
	}
	for iter.Next() {
		spec, compileErr := CompileClass(iter.Value())
		if compileErr != nil {
			errs = append(errs, convertCompileError(compileErr, "class."+iter.Selector().String()))
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		result.Classes = append(result.Classes, *spec)
	}

	return result, errs
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *CompileError
	if errors.As(err, &compileErr) {
		code := ErrCodeClass
		if compileErr.Field == "cue" {
			code = ErrCodeBuildFailed
		} else if strings.Contains(compileErr.Field, ".fields.") {
			code = ErrCodeFieldType
		}
		return &LoadError{
			Code:    code,
			Message: compileErr.Field + ": " + compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}
