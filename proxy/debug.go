// Chronoquery - Templated monitoring queries for dashboards
// Copyright (C) 2025 Andy Dixon <andy@andydixon.com>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// proxy/debug.go
package proxy

// DebugMode is set once, in main(), then read by the handlers.
// When it is on, every request leaves a trail of breadcrumbs in the log.
var DebugMode bool

// A small note for whoever flips this switch at three in the morning:
//
// Every request that walks through the proxy will tell you where it came
// from and what it asked for. Every frame that leaves will be counted on
// the way out. The engine underneath keeps its own diary at debug level,
// so the expanded query text shows up right next to the request that
// produced it.
//
// It is chatty. It is supposed to be. Turn it off again before the
// dashboards go back on the big screen.
