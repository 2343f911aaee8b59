// SPDX-FileCopyrightText: 2026 Aizu Analytics, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package inmem implements the store KV capability in process memory. It is the
default fallback when no platform-provided storage is injected, which means
identity does not survive a restart.
*/
package inmem
