// Package completionhelp has the dynamic values of the shell completions.
package completionhelp

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/findy-network/findy-alice/agent/utils"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

const walletExt = ".bolt"

// WalletNames returns the names of the wallets in the storage path.
func WalletNames() (names []string) {
	defer err2.Catch(err2.Err(func(err error) {
		_, _ = fmt.Fprintln(os.Stderr, err)
	}))

	files := try.To1(filepath.Glob(filepath.Join(utils.Settings.StoragePath(), "*"+walletExt)))
	names = make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, strings.TrimSuffix(filepath.Base(f), walletExt))
	}
	return names
}
