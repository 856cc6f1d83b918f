/*
Copyright (c) sanidump authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrExitUsesExitHook(t *testing.T) {
	var exitCode int
	SetExitHook(func(code int) { exitCode = code })
	defer SetExitHook(nil)

	ErrExit("export table %s: %w", "public.orders", errors.New("boom"))

	assert.Equal(t, 1, exitCode)
	assert.EqualError(t, ErrExitErr, "export table public.orders: boom")
}
