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
package srcdb

import (
	"fmt"
	"net/url"
)

// Source holds the connection parameters of the database being exported.
type Source struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	Uri      string
}

// GetConnectionUri builds (and caches) the postgresql:// URI from the
// individual parameters. An explicitly supplied Uri wins.
func (s *Source) GetConnectionUri() string {
	if s.Uri != "" {
		return s.Uri
	}
	hostAndPort := fmt.Sprintf("%s:%d", s.Host, s.Port)
	sourceUrl := &url.URL{
		Scheme:   "postgresql",
		User:     url.UserPassword(s.User, s.Password),
		Host:     hostAndPort,
		Path:     s.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", s.SSLMode),
	}
	s.Uri = sourceUrl.String()
	return s.Uri
}
