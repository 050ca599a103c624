// Copyright © 2017 Genome Research Limited
// Author: Sendu Bala <sb10@sanger.ac.uk>.
//
//  This file is part of wr.
//
//  wr is free software: you can redistribute it and/or modify
//  it under the terms of the GNU Lesser General Public License as published by
//  the Free Software Foundation, either version 3 of the License, or
//  (at your option) any later version.
//
//  wr is distributed in the hope that it will be useful,
//  but WITHOUT ANY WARRANTY; without even the implied warranty of
//  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
//  GNU Lesser General Public License for more details.
//
//  You should have received a copy of the GNU Lesser General Public License
//  along with wr. If not, see <http://www.gnu.org/licenses/>.

/*
Package internal implements the config system used by the cmd and httpapi
packages (see config.go), self-signed TLS certificate generation for the
optional HTTPS listener (cert.go), and panic recovery/logging shared by
the server's long-running goroutines (panic.go).

    import "github.com/Klumpe-lab/crboost-server/internal"
    import "github.com/inconshreveable/log15"
    logger := log15.New()
    logger.SetHandler(log15.LvlFilterHandler(log15.LvlWarn, log15.StderrHandler))
    config, err := internal.ConfigLoad(logger)
    port := config.ServerPort
*/
package internal
