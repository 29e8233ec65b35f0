// Package pools provides byte buffer pooling for encoders that hash or frame
// many small records, such as graph fingerprints and snapshot headers.
package pools
