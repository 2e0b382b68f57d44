package hosting

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tilgarden/tilgarden/internal/common"
)

var repoNameRe = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// reservedRepoNames can never be used as repository names: git internals
// plus Windows device names, which break clones on that platform.
var reservedRepoNames = map[string]struct{}{
	".": {}, "..": {}, "git": {}, "head": {},
	"con": {}, "prn": {}, "aux": {}, "nul": {},
	"com1": {}, "com2": {}, "com3": {}, "com4": {}, "com5": {},
	"com6": {}, "com7": {}, "com8": {}, "com9": {},
	"lpt1": {}, "lpt2": {}, "lpt3": {}, "lpt4": {}, "lpt5": {},
	"lpt6": {}, "lpt7": {}, "lpt8": {}, "lpt9": {},
}

// ValidateRepoName checks a user-supplied repository name against the
// hosting rules: 1–100 characters from [a-zA-Z0-9._-], no leading or
// trailing '.' or '-', no "..", and not a reserved name.
func ValidateRepoName(name string) error {
	if len(name) < 1 || len(name) > 100 {
		return fmt.Errorf("%w: repository name must be 1-100 characters", common.ErrValidation)
	}
	if !repoNameRe.MatchString(name) {
		return fmt.Errorf("%w: repository name may only contain letters, digits, '.', '_' and '-'", common.ErrValidation)
	}
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "-") ||
		strings.HasSuffix(name, ".") || strings.HasSuffix(name, "-") {
		return fmt.Errorf("%w: repository name may not start or end with '.' or '-'", common.ErrValidation)
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("%w: repository name may not contain '..'", common.ErrValidation)
	}
	if _, ok := reservedRepoNames[strings.ToLower(name)]; ok {
		return fmt.Errorf("%w: repository name %q is reserved", common.ErrValidation, name)
	}
	return nil
}
