// Package ml holds the numeric building blocks of the segmentation and churn
// stages: feature standardization, k-means clustering, minority oversampling,
// L2-regularized logistic regression, stratified splitting and evaluation.
//
// All routines operate on row-major [][]float64 matrices and are deterministic
// for a fixed seed.
package ml
