// Package classfile provides the low-level JVM class-file primitive that the
// composition engine drives: a deduplicating constant pool builder, a
// label-based code assembler with exact stack-map-frame computation, attribute
// encoding, and a parser for reading produced class bytes back.
//
// The format is the standard class-file structure (JVMS chapter 4):
//
//	[magic:4] [minor:2] [major:2]
//	[constant_pool_count:2] [constant_pool:...]
//	[access_flags:2] [this_class:2] [super_class:2]
//	[interfaces_count:2] [interfaces:...]
//	[fields_count:2] [fields:...]
//	[methods_count:2] [methods:...]
//	[attributes_count:2] [attributes:...]
//
// Key properties:
//
//   - Constant pool entries are append-only and structurally deduplicated:
//     requesting the same entry twice returns the same index.
//
//   - The CodeAssembler records instructions symbolically with labels and
//     tracks the verification frame (operand stack and local variable types)
//     instruction by instruction. Assembly produces the final byte sequence,
//     max_stack/max_locals, and the StackMapTable frames for every branch
//     target, so bodies verify on modern VMs without -noverify.
//
//   - Any structural violation (oversized body, pool overflow, an
//     instruction sequence whose frames cannot be reconciled) surfaces as a
//     *WriteError; no partially valid bytes are ever returned.
//
// The package is deliberately ignorant of the higher-level type model: it
// consumes binary names ("java/lang/String") and erased descriptors
// ("(I)Ljava/lang/String;") only.
package classfile
