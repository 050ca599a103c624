// Copyright © 2018-2021 Genome Research Limited
// Author: Ashwini Chhipa <ac55@sanger.ac.uk>
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

package internal

import (
	"bytes"
	crand "crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const (
	blockFileWrite int         = os.O_RDONLY | os.O_CREATE | os.O_TRUNC
	fileMode       os.FileMode = 0o600
)

func TestCertsDontExistYet(t *testing.T) {
	dir := t.TempDir()
	caFile := filepath.Join(dir, "ca.pem")
	certFile := filepath.Join(dir, "cert.pem")
	keyFile := filepath.Join(dir, "key.pem")

	if err := checkIfCertsExist([]string{caFile, certFile, keyFile}); err != nil {
		t.Errorf("expected no error, got %s", err)
	}
}

func TestCertTemplate(t *testing.T) {
	if _, err := certTemplate("localhost", bytes.NewReader([]byte{})); err == nil {
		t.Error("expected an error from an exhausted random source")
	}

	tmpl, err := certTemplate("localhost", crand.Reader)
	if err != nil {
		t.Fatalf("certTemplate failed: %s", err)
	}
	if tmpl == nil {
		t.Fatal("expected a non-nil template")
	}
}

func TestCreateCertFromTemplate(t *testing.T) {
	rsaKey, err := rsa.GenerateKey(crand.Reader, DefaultBitsForRootRSAKey)
	if err != nil {
		t.Fatalf("GenerateKey failed: %s", err)
	}
	tmpl, err := certTemplate("localhost", crand.Reader)
	if err != nil {
		t.Fatalf("certTemplate failed: %s", err)
	}

	if _, err := createCertFromTemplate(&x509.Certificate{}, tmpl, &rsaKey.PublicKey, rsaKey, crand.Reader); err == nil {
		t.Error("expected an error from an empty template")
	}

	certByte, err := createCertFromTemplate(tmpl, tmpl, &rsaKey.PublicKey, rsaKey, crand.Reader)
	if err != nil {
		t.Fatalf("createCertFromTemplate failed: %s", err)
	}
	if certByte == nil {
		t.Fatal("expected non-nil cert bytes")
	}

	dir := t.TempDir()
	caFile := filepath.Join(dir, "ca.pem")
	pemBlock := &pem.Block{Type: "CERTIFICATE", Bytes: certByte}

	if err := encodeAndSavePEM(pemBlock, caFile, os.O_RDWR|os.O_CREATE|os.O_TRUNC, fileMode); err != nil {
		t.Errorf("encodeAndSavePEM failed: %s", err)
	}
	if err := encodeAndSavePEM(pemBlock, caFile, os.O_RDONLY, fileMode); err == nil {
		t.Error("expected an error when the file cannot be created")
	}
	if err := encodeAndSavePEM(pemBlock, caFile, blockFileWrite, fileMode); err == nil {
		t.Error("expected an error when the file cannot be written")
	}

	if cert, err := parseCertAndSavePEM(certByte, caFile, certFileFlags); err != nil || cert == nil {
		t.Errorf("parseCertAndSavePEM failed: cert=%v err=%s", cert, err)
	}
	if cert, err := parseCertAndSavePEM([]byte{}, caFile, certFileFlags); err == nil || cert != nil {
		t.Errorf("expected an error for an empty certificate byte slice, got cert=%v err=%s", cert, err)
	}
	if cert, err := parseCertAndSavePEM(certByte, caFile, blockFileWrite); err == nil || cert != nil {
		t.Errorf("expected an error when the file cannot be written, got cert=%v err=%s", cert, err)
	}
}

func TestGenerateRootAndServerCert(t *testing.T) {
	rsaKey, err := rsa.GenerateKey(crand.Reader, DefaultBitsForRootRSAKey)
	if err != nil {
		t.Fatalf("GenerateKey failed: %s", err)
	}
	tmpl, err := certTemplate("localhost", crand.Reader)
	if err != nil {
		t.Fatalf("certTemplate failed: %s", err)
	}

	dir := t.TempDir()
	caFile := filepath.Join(dir, "ca.pem")
	certFile := filepath.Join(dir, "cert.pem")

	rootCert, err := generateRootCert(caFile, tmpl, rsaKey, crand.Reader, certFileFlags)
	if err != nil || rootCert == nil {
		t.Fatalf("generateRootCert failed: cert=%v err=%s", rootCert, err)
	}
	if _, err := generateRootCert(caFile, &x509.Certificate{}, rsaKey, crand.Reader, certFileFlags); err == nil {
		t.Error("expected an error with an empty template")
	}
	if _, err := generateRootCert(caFile, tmpl, rsaKey, crand.Reader, blockFileWrite); err == nil {
		t.Error("expected an error when the file cannot be written")
	}

	if err := generateServerCert(certFile, rootCert, tmpl, rsaKey, rsaKey, crand.Reader, certFileFlags); err != nil {
		t.Errorf("generateServerCert failed: %s", err)
	}
	if err := generateServerCert(certFile, rootCert, &x509.Certificate{}, rsaKey, rsaKey, crand.Reader, certFileFlags); err == nil {
		t.Error("expected an error with an empty template")
	}
	if err := generateServerCert(certFile, rootCert, tmpl, rsaKey, rsaKey, crand.Reader, blockFileWrite); err == nil {
		t.Error("expected an error when the file cannot be written")
	}
}

func TestGenerateCertificates(t *testing.T) {
	rsaKey, err := rsa.GenerateKey(crand.Reader, DefaultBitsForRootRSAKey)
	if err != nil {
		t.Fatalf("GenerateKey failed: %s", err)
	}

	dir := t.TempDir()
	caFile := filepath.Join(dir, "ca.pem")
	certFile := filepath.Join(dir, "cert.pem")
	keyFile := filepath.Join(dir, "key.pem")

	if err := generateCertificates(caFile, "localhost", rsaKey, rsaKey, certFile, crand.Reader, certFileFlags); err != nil {
		t.Fatalf("generateCertificates failed: %s", err)
	}
	if err := generateCertificates(caFile, "localhost", rsaKey, rsaKey, certFile, bytes.NewReader([]byte{}), certFileFlags); err == nil {
		t.Error("expected an error with an empty random source")
	}
	if err := generateCertificates(caFile, "localhost", rsaKey, rsaKey, certFile, crand.Reader, blockFileWrite); err == nil {
		t.Error("expected an error when files cannot be written")
	}

	pemBlock := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(rsaKey)}
	if err := encodeAndSavePEM(pemBlock, keyFile, serverKeyFlags, serverKeyMode); err != nil {
		t.Errorf("encodeAndSavePEM for the private key failed: %s", err)
	}
}

func TestGenerateCerts(t *testing.T) {
	dir := t.TempDir()
	caFile := filepath.Join(dir, "ca.pem")
	certFile := filepath.Join(dir, "cert.pem")
	keyFile := filepath.Join(dir, "key.pem")

	if err := GenerateCerts(caFile, certFile, keyFile, "localhost", 0, DefaultBitsForRootRSAKey, crand.Reader, certFileFlags); err == nil {
		t.Error("expected an error with zero bits for the root RSA key")
	}
	if err := GenerateCerts(caFile, certFile, keyFile, "localhost", DefaultBitsForRootRSAKey, 0, crand.Reader, certFileFlags); err == nil {
		t.Error("expected an error with zero bits for the server RSA key")
	}
	if err := GenerateCerts(caFile, certFile, keyFile, "localhost", DefaultBitsForRootRSAKey, DefaultBitsForRootRSAKey,
		crand.Reader, blockFileWrite); err == nil {
		t.Error("expected an error when files cannot be written")
	}

	if err := GenerateCerts(caFile, certFile, keyFile, "localhost", DefaultBitsForRootRSAKey, DefaultBitsForRootRSAKey,
		crand.Reader, certFileFlags); err != nil {
		t.Fatalf("GenerateCerts failed: %s", err)
	}

	if err := checkIfCertsExist([]string{caFile, certFile, keyFile}); err == nil {
		t.Error("expected an error since the certs now exist")
	}

	if err := GenerateCerts(caFile, certFile, keyFile, "localhost", DefaultBitsForRootRSAKey, DefaultBitsForRootRSAKey,
		crand.Reader, certFileFlags); err == nil {
		t.Error("expected generating certificates again to fail")
	}

	if err := CheckCerts(certFile, keyFile); err != nil {
		t.Errorf("CheckCerts failed: %s", err)
	}
	if err := CheckCerts("/tmp/crboost_test_missing_cert.pem", keyFile); err == nil {
		t.Error("expected an error for a missing cert file")
	}
	if err := CheckCerts(certFile, "/tmp/crboost_test_missing_key.pem"); err == nil {
		t.Error("expected an error for a missing key file")
	}

	certPEMBlock, err := os.ReadFile(certFile)
	if err != nil {
		t.Fatalf("could not read %s: %s", certFile, err)
	}
	if cert := findPEMBlockAndReturnCert(certPEMBlock); len(cert.Certificate) == 0 {
		t.Error("expected a non-nil certificate")
	}
	if cert := findPEMBlockAndReturnCert([]byte{}); len(cert.Certificate) != 0 {
		t.Errorf("expected an empty certificate for empty input, got %d chain entries", len(cert.Certificate))
	}

	expiry, err := CertExpiry(caFile)
	if err != nil {
		t.Fatalf("CertExpiry failed: %s", err)
	}
	lower := time.Now().Add(364 * 24 * time.Hour)
	upper := time.Now().Add(366 * 24 * time.Hour)
	if expiry.Before(lower) || expiry.After(upper) {
		t.Errorf("expected expiry to be about a year from now, got %s", expiry)
	}

	if _, err := CertExpiry("/tmp/crboost_test_missing_expiry.pem"); err == nil {
		t.Error("expected an error for a missing file")
	}

	empCertFile := filepath.Join(dir, "emp.pem")
	if err := os.WriteFile(empCertFile, []byte{0}, fileMode); err != nil {
		t.Fatalf("could not write %s: %s", empCertFile, err)
	}
	if _, err := CertExpiry(empCertFile); err == nil {
		t.Error("expected an error for a non-PEM file")
	}
}
