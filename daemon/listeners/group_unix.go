//go:build !windows

package listeners

import (
	"os/user"
	"strconv"

	"github.com/pkg/errors"
)

const defaultSocketGroup = "regfront"

func lookupGID(name string) (int, error) {
	group, err := user.LookupGroup(name)
	if err == nil {
		return strconv.Atoi(group.Gid)
	}
	if gid, err := strconv.Atoi(name); err == nil {
		return gid, nil
	}
	return -1, errors.Errorf("group %s not found", name)
}
