// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package genome

import (
	"fmt"

	"github.com/pkg/errors"
)

// BuildMismatchError is returned by a position source when the caller asks
// for coordinates on a different reference build than the one the source
// was indexed against.  It is fatal to the whole batch.
type BuildMismatchError struct {
	Expected Build
	Actual   Build
}

func (e *BuildMismatchError) Error() string {
	return fmt.Sprintf("reference build mismatch: requested %v, source is indexed on %v", e.Expected, e.Actual)
}

// IsBuildMismatch reports whether err (or its cause) is a *BuildMismatchError.
func IsBuildMismatch(err error) bool {
	_, ok := AsBuildMismatch(err)
	return ok
}

// AsBuildMismatch unwraps err to a *BuildMismatchError, if it is one.
func AsBuildMismatch(err error) (*BuildMismatchError, bool) {
	if err == nil {
		return nil, false
	}
	e, ok := errors.Cause(err).(*BuildMismatchError)
	return e, ok
}
