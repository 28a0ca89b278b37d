package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"conciliador/internal/logger"
)

// months holds the canonical capitalized folder names in calendar order.
// Folders on disk match case-insensitively against these.
var months = []string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

// MonthName returns the canonical Spanish folder/sheet name for a month.
func MonthName(m time.Month) string {
	return months[int(m)-1]
}

// InvoiceFile is one XML document discovered under the source tree, with
// the folder coordinates it was filed under.
type InvoiceFile struct {
	Path     string // Absolute or root-relative path to the document
	Month    string // Canonical month folder name, e.g. "Enero"
	Employee string // Employee folder name as written on disk
}

// Scanner walks a <root>/<Month>/<Employee>/*.xml tree in deterministic
// order: months in calendar order, employees case-insensitively sorted,
// files sorted by name. Months without a folder are silently skipped.
type Scanner struct {
	log zerolog.Logger
}

// New creates a directory scanner.
func New() *Scanner {
	return &Scanner{log: logger.WithComponent("scanner")}
}

// Scan enumerates every invoice document under root. A missing or
// unreadable root is an error; everything below it degrades to skips.
func (s *Scanner) Scan(root string) ([]InvoiceFile, error) {
	const op = "Scan"

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("%s: reading source directory: %w", op, err)
	}

	// Month folders are matched case-insensitively against the canonical
	// names, then visited in calendar order regardless of disk order.
	onDisk := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			onDisk[strings.ToLower(e.Name())] = e.Name()
		}
	}

	var files []InvoiceFile
	for _, month := range months {
		dirName, ok := onDisk[strings.ToLower(month)]
		if !ok {
			continue
		}
		monthFiles, err := s.scanMonth(filepath.Join(root, dirName), month)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		files = append(files, monthFiles...)
	}

	s.log.Debug().
		Str("root", root).
		Int("files", len(files)).
		Msg("Source tree scanned")

	return files, nil
}

func (s *Scanner) scanMonth(monthDir, month string) ([]InvoiceFile, error) {
	entries, err := os.ReadDir(monthDir)
	if err != nil {
		return nil, fmt.Errorf("reading month folder %s: %w", monthDir, err)
	}

	var employees []string
	for _, e := range entries {
		if e.IsDir() {
			employees = append(employees, e.Name())
		}
	}
	sort.Slice(employees, func(i, j int) bool {
		return strings.ToLower(employees[i]) < strings.ToLower(employees[j])
	})

	var files []InvoiceFile
	for _, employee := range employees {
		employeeDir := filepath.Join(monthDir, employee)
		docs, err := os.ReadDir(employeeDir)
		if err != nil {
			return nil, fmt.Errorf("reading employee folder %s: %w", employeeDir, err)
		}

		var names []string
		for _, d := range docs {
			if !d.IsDir() && strings.EqualFold(filepath.Ext(d.Name()), ".xml") {
				names = append(names, d.Name())
			}
		}
		sort.Strings(names)

		for _, name := range names {
			files = append(files, InvoiceFile{
				Path:     filepath.Join(employeeDir, name),
				Month:    month,
				Employee: employee,
			})
		}
	}
	return files, nil
}
