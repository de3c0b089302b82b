// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package profile describes the digital cinema certificate profile: the closed set of
// chain tiers (root, intermediate, leaf), the fixed extension policy of each tier and
// the ordered subject name every certificate carries.
//
// Tiers and policies are constant data. Subject names always use the attribute order
// O, OU, CN, dnQualifier; relying parties compare the resulting identity strings, so the
// order is part of the contract.
package profile
