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
package reference

import (
	"context"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
)

// Reference is an opened reference genome.  It satisfies the resolver's
// base-lookup contract and must be closed when the run is over.
type Reference struct {
	Genome
	fa file.File
}

// Open loads the FASTA at fapath.  If fapath+".fai" exists the file is
// accessed through the index; otherwise the (possibly compressed) sequence
// data is read into memory.
func Open(ctx context.Context, fapath string) (ref *Reference, err error) {
	ref = &Reference{}
	if idx, ierr := file.Open(ctx, fapath+".fai"); ierr == nil {
		defer func() {
			if e := idx.Close(ctx); e != nil && err == nil {
				err = e
			}
		}()
		if ref.fa, err = file.Open(ctx, fapath); err != nil {
			return nil, err
		}
		if ref.Genome, err = NewIndexed(ref.fa.Reader(ctx), idx.Reader(ctx)); err != nil {
			_ = ref.fa.Close(ctx)
			return nil, err
		}
		log.Printf("reference.Open: %s opened with index, %d contig(s)", fapath, len(ref.Contigs()))
		return ref, nil
	}

	var infile file.File
	if infile, err = file.Open(ctx, fapath); err != nil {
		return nil, err
	}
	defer func() {
		if e := infile.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	reader, _ := compress.NewReader(infile.Reader(ctx))
	defer func() {
		if e := reader.Close(); e != nil && err == nil {
			err = e
		}
	}()
	if ref.Genome, err = New(reader); err != nil {
		return nil, err
	}
	log.Printf("reference.Open: %s loaded into memory, %d contig(s)", fapath, len(ref.Contigs()))
	return ref, nil
}

// FromGenome wraps an already-constructed Genome.
func FromGenome(g Genome) *Reference {
	return &Reference{Genome: g}
}

// Close releases the underlying FASTA file, if any.
func (r *Reference) Close(ctx context.Context) error {
	if r.fa == nil {
		return nil
	}
	return r.fa.Close(ctx)
}
