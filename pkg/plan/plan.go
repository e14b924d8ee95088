// Package plan turns catalog items into an ordered install plan.
//
// The strategy for each item depends only on which optional catalog fields are
// present:
//
//	direct source + package manager id -> DirectWithFallback
//	direct source only                 -> Direct
//	package manager id only            -> PackageManager
//	neither                            -> Manual (download page, else website)
//
// A plan keeps request order and splits items into AutoInstall and ManualOnly
// without reordering either list.
package plan

import (
	"strings"

	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/catalog"
)

// DirectAttempts is how many times a direct download is tried
const DirectAttempts = 3

// PackageFormat is how a downloaded installer is run
type PackageFormat string

const (
	// FormatExecutable is launched directly with its silent arguments
	FormatExecutable PackageFormat = "exe"
	// FormatInstallerPackage goes through msiexec
	FormatInstallerPackage PackageFormat = "msi"
)

// ParsePackageFormat maps a catalog value to a format. Anything other than
// msi is treated as an executable.
func ParsePackageFormat(s string) PackageFormat {
	if strings.EqualFold(s, string(FormatInstallerPackage)) {
		return FormatInstallerPackage
	}
	return FormatExecutable
}

// StrategyKind names an install strategy
type StrategyKind string

const (
	StrategyDirectWithFallback StrategyKind = "direct_with_fallback"
	StrategyDirect             StrategyKind = "direct"
	StrategyPackageManager     StrategyKind = "package_manager"
	StrategyManual             StrategyKind = "manual"
)

// Strategy is a tagged union; which fields are meaningful depends on Kind.
type Strategy struct {
	Kind StrategyKind

	// Direct and DirectWithFallback
	SourceURL  string
	Format     PackageFormat
	SilentArgs string

	// PackageManager and DirectWithFallback
	ManagerPackageID string

	// Manual; may be empty when the catalog has no page for the app
	OpenURL string
}

// AttemptMethod is one way of installing an item
type AttemptMethod string

const (
	MethodDirect         AttemptMethod = "direct"
	MethodPackageManager AttemptMethod = "package_manager"
)

// Attempt is one step of the install sequence
type Attempt struct {
	Method AttemptMethod
	Tries  int
}

// Attempts returns the ordered install steps for the strategy. Manual returns nil.
func (s Strategy) Attempts() []Attempt {
	switch s.Kind {
	case StrategyDirectWithFallback:
		return []Attempt{{Method: MethodDirect, Tries: DirectAttempts}, {Method: MethodPackageManager, Tries: 1}}
	case StrategyDirect:
		return []Attempt{{Method: MethodDirect, Tries: DirectAttempts}}
	case StrategyPackageManager:
		return []Attempt{{Method: MethodPackageManager, Tries: 1}}
	default:
		return nil
	}
}

// IsAutomatic reports whether the script installs the item unattended
func (s Strategy) IsAutomatic() bool {
	return s.Kind != StrategyManual
}

// InstallItem is one application in a plan
type InstallItem struct {
	ID          string
	DisplayName string
	Strategy    Strategy
}

// InstallPlan is the ordered set of items for one build
type InstallPlan struct {
	Items       []InstallItem
	AutoInstall []InstallItem
	ManualOnly  []InstallItem
}

// Len returns the number of items in the plan
func (p InstallPlan) Len() int {
	return len(p.Items)
}

// StrategyFor derives the strategy for a catalog item
func StrategyFor(item catalog.Item) Strategy {
	hasDirect := item.DirectSourceURL != ""
	hasManager := item.PackageManagerID != ""

	switch {
	case hasDirect && hasManager:
		return Strategy{
			Kind:             StrategyDirectWithFallback,
			SourceURL:        item.DirectSourceURL,
			Format:           ParsePackageFormat(item.PackageFormat),
			SilentArgs:       item.SilentArgs,
			ManagerPackageID: item.PackageManagerID,
		}
	case hasDirect:
		return Strategy{
			Kind:       StrategyDirect,
			SourceURL:  item.DirectSourceURL,
			Format:     ParsePackageFormat(item.PackageFormat),
			SilentArgs: item.SilentArgs,
		}
	case hasManager:
		return Strategy{
			Kind:             StrategyPackageManager,
			ManagerPackageID: item.PackageManagerID,
		}
	default:
		openURL := item.OfficialDownloadURL
		if openURL == "" {
			openURL = item.OfficialWebsiteURL
		}
		return Strategy{Kind: StrategyManual, OpenURL: openURL}
	}
}

// Build creates a plan from items in the given order
func Build(items []catalog.Item) InstallPlan {
	p := InstallPlan{
		Items: make([]InstallItem, 0, len(items)),
	}
	for _, item := range items {
		installItem := InstallItem{
			ID:          item.ID,
			DisplayName: item.Name,
			Strategy:    StrategyFor(item),
		}
		p.Items = append(p.Items, installItem)
		if installItem.Strategy.IsAutomatic() {
			p.AutoInstall = append(p.AutoInstall, installItem)
		} else {
			p.ManualOnly = append(p.ManualOnly, installItem)
		}
	}
	return p
}
